// Package apu drives the sound chip emulation. It splits the elapsed cycles
// into frames, ends each frame in the mixer and hands the samples of every
// frame to a callback.
package apu

import (
	"errors"
	"fmt"
	"math"

	"github.com/retroenv/psgtracker/internal/mixer"
	"github.com/retroenv/psgtracker/internal/psg"
	"github.com/retroenv/retrogolib/log"
)

// Machine selects the clock and frame rate of the emulated system.
type Machine int

// Supported machines.
const (
	NTSC Machine = iota
	PAL
)

// Clock and frame rates of the supported machines.
const (
	ClockNTSC     = 3579540
	ClockPAL      = 3546893
	FrameRateNTSC = 60
	FrameRatePAL  = 50
)

// minFrameRate sizes the sample buffer so that the longest frame fits.
const minFrameRate = FrameRatePAL

var (
	errInvalidSampleRate = errors.New("invalid sample rate")
	errInvalidChannels   = errors.New("invalid channel count")
	errInvalidMachine    = errors.New("invalid machine")
)

func (m Machine) String() string {
	switch m {
	case NTSC:
		return "ntsc"
	case PAL:
		return "pal"
	default:
		return "unknown"
	}
}

// Clock returns the chip clock rate of the machine in Hz.
func (m Machine) Clock() uint32 {
	if m == PAL {
		return ClockPAL
	}
	return ClockNTSC
}

// FrameRate returns the frame rate of the machine.
func (m Machine) FrameRate() uint32 {
	if m == PAL {
		return FrameRatePAL
	}
	return FrameRateNTSC
}

// Callback receives the samples of every finished frame. Count is the number
// of samples per output channel, stereo samples are interleaved. The slice is
// reused for the next frame and has to be copied if it is retained.
type Callback interface {
	FlushBuffer(samples []int16, count int)
}

// APU owns the chip and the mixer and pumps cycles through them.
type APU struct {
	logger   *log.Logger
	callback Callback

	chip  *psg.Chip
	mixer *mixer.Mixer

	machine    Machine
	sampleRate int
	channels   int
	buffer     []int16
	configured bool

	cyclesToRun     uint32
	frameCycles     uint32 // cycles elapsed in the current frame
	frameClock      uint32 // cycles left until the frame ends
	frameCycleCount uint32 // cycles per frame
}

// New returns an audio pump that flushes every frame to the callback.
// SetupSound has to succeed before any samples are produced.
func New(logger *log.Logger, callback Callback) *APU {
	mix := mixer.New()
	return &APU{
		logger:   logger,
		callback: callback,
		mixer:    mix,
		chip:     psg.New(mix),
	}
}

// SetupSound configures the output format and the machine timing. On error
// the pump stays unconfigured.
func (a *APU) SetupSound(sampleRate, channels int, machine Machine) error {
	a.configured = false

	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", errInvalidSampleRate, sampleRate)
	}
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: %d", errInvalidChannels, channels)
	}
	if machine != NTSC && machine != PAL {
		return fmt.Errorf("%w: %d", errInvalidMachine, machine)
	}

	samples := sampleRate / minFrameRate
	if err := a.mixer.AllocateBuffer(sampleRate, samples+1, channels == 2); err != nil {
		return fmt.Errorf("allocating mixer buffer: %w", err)
	}
	a.mixer.SetClockRate(float64(machine.Clock()))

	a.machine = machine
	a.sampleRate = sampleRate
	a.channels = channels
	a.buffer = make([]int16, (samples+1)*channels)
	a.frameCycleCount = machine.Clock() / machine.FrameRate()
	a.configured = true

	a.logger.Debug("Sound setup",
		log.Int("sample_rate", sampleRate),
		log.Int("channels", channels),
		log.Stringer("machine", machine),
		log.Int("frame_cycles", int(a.frameCycleCount)))

	a.Reset()
	return nil
}

// Reset resets the chip, the mixer and the frame timing.
func (a *APU) Reset() {
	a.cyclesToRun = 0
	a.frameCycles = 0
	a.frameClock = a.frameCycleCount
	a.chip.Reset()
	a.mixer.Clear()
}

// SetupMixer sets the filters and the overall volume in percent.
func (a *APU) SetupMixer(lowCut, highCut, highDamp, volume int) {
	a.mixer.UpdateSettings(mixer.Settings{
		LowCut:   lowCut,
		HighCut:  highCut,
		HighDamp: highDamp,
		Volume:   float64(volume) / 100,
	})
}

// SetChipLevel sets the chip output level in decibels.
func (a *APU) SetChipLevel(db float64) {
	a.mixer.SetChipLevel(math.Pow(10, db/20))
}

// SetStereoSeparation sets the stereo separation in percent.
func (a *APU) SetStereoSeparation(percent int) {
	a.mixer.SetStereoSeparation(float64(percent) / 100)
}

// AddTime schedules cycles to be run by the next Process call. Negative
// values are ignored.
func (a *APU) AddTime(cycles int32) {
	if cycles < 0 {
		return
	}
	a.cyclesToRun += uint32(cycles)
}

// Process runs all scheduled cycles, ending a frame whenever the frame
// clock expires.
func (a *APU) Process() {
	if !a.configured {
		a.cyclesToRun = 0
		return
	}

	for a.cyclesToRun > 0 {
		cycles := min(a.cyclesToRun, a.frameClock)

		a.chip.Process(cycles)

		a.frameCycles += cycles
		a.frameClock -= cycles
		a.cyclesToRun -= cycles

		if a.frameClock == 0 {
			a.endFrame()
		}
	}
}

// Write runs the scheduled cycles and then writes a register. Only the chip
// register addresses, the stereo port and the period high port are accepted.
func (a *APU) Write(address uint16, value uint8) {
	a.Process()

	if address == psg.StereoPort || address <= 0x10 || address == psg.PeriodHighPort {
		a.chip.Write(address, value)
	}
}

// WriteRaw runs the scheduled cycles and then passes a byte of the real chip
// protocol to the chip.
func (a *APU) WriteRaw(b uint8) {
	a.Process()
	a.chip.WriteRaw(b)
}

// ChannelLevel returns the meter level of a channel, 0 to 15.
func (a *APU) ChannelLevel(channel psg.ChannelID) int {
	return a.mixer.ChannelLevel(channel)
}

// Chip returns the emulated chip.
func (a *APU) Chip() *psg.Chip { return a.chip }

// Machine returns the configured machine.
func (a *APU) Machine() Machine { return a.machine }

// SampleRate returns the configured output sample rate.
func (a *APU) SampleRate() int { return a.sampleRate }

// Channels returns the configured number of output channels.
func (a *APU) Channels() int { return a.channels }

// FrameCycles returns the number of chip cycles per frame.
func (a *APU) FrameCycles() uint32 { return a.frameCycleCount }

func (a *APU) endFrame() {
	a.chip.EndFrame()
	a.mixer.FinishBuffer(a.frameCycles)

	count := a.mixer.ReadBuffer(a.buffer)
	if a.callback != nil {
		a.callback.FlushBuffer(a.buffer[:count*a.channels], count)
	}

	a.frameClock = a.frameCycleCount
	a.frameCycles = 0
}
