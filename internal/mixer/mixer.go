// Package mixer converts the amplitude changes of the sound chip channels
// into band-limited 16 bit PCM samples and tracks per channel level meters.
package mixer

import (
	"errors"
	"fmt"
	"math"

	"github.com/retroenv/psgtracker/internal/psg"
)

const (
	// amplitudeRange is the amplitude that maps to full scale at volume 1.
	amplitudeRange = 3000
	// chipVolume is the share of the output range used by the chip.
	chipVolume = 0.25

	meterHold    = 3
	meterFalloff = 0.6
	meterMax     = 15
)

var errInvalidBuffer = errors.New("invalid buffer size")

// Settings contains the filter and volume settings of the mixer.
type Settings struct {
	LowCut   int     // Hz, 0 disables the bass filter
	HighCut  int     // Hz, start of the treble damping
	HighDamp int     // dB of treble damping at the cutoff
	Volume   float64 // overall linear volume, 1.0 is unity
}

// DefaultSettings returns the default filter settings.
func DefaultSettings() Settings {
	return Settings{
		LowCut:   16,
		HighCut:  12000,
		HighDamp: 24,
		Volume:   1.0,
	}
}

// Mixer receives channel amplitudes from the chip, feeds them into one
// synthesis buffer per output channel and keeps level meters.
type Mixer struct {
	left  *Buffer
	right *Buffer // nil in mono mode

	settings   Settings
	chipLevel  float64
	separation float64
	volumeUnit float64

	clockRate  float64
	sampleRate int

	routing   [psg.ChannelCount][2]bool
	lastLeft  [psg.ChannelCount]int32 // scaled output amplitudes
	lastRight [psg.ChannelCount]int32

	meter     [psg.ChannelCount]float64
	meterHold [psg.ChannelCount]int
}

// New returns a mixer with default settings. AllocateBuffer has to be called
// before samples can be produced.
func New() *Mixer {
	m := &Mixer{
		settings:   DefaultSettings(),
		chipLevel:  1.0,
		separation: 1.0,
		clockRate:  3579545,
	}
	for i := range m.routing {
		m.routing[i] = [2]bool{true, true}
	}
	m.updateVolume()
	return m
}

// AllocateBuffer allocates the synthesis buffers for the given sample rate.
// Size is the buffer capacity in samples per output channel.
func (m *Mixer) AllocateBuffer(sampleRate, size int, stereo bool) error {
	if sampleRate <= 0 || size <= 0 {
		return fmt.Errorf("%w: rate %d, size %d", errInvalidBuffer, sampleRate, size)
	}

	m.sampleRate = sampleRate
	m.left = NewBuffer(size)
	m.right = nil
	if stereo {
		m.right = NewBuffer(size)
	}
	m.applySettings()
	return nil
}

// SetClockRate sets the chip clock rate in Hz.
func (m *Mixer) SetClockRate(rate float64) {
	m.clockRate = rate
	m.applySettings()
}

// UpdateSettings sets the filters and the overall volume.
func (m *Mixer) UpdateSettings(settings Settings) {
	m.settings = settings
	m.applySettings()
}

// Settings returns the current filter and volume settings.
func (m *Mixer) Settings() Settings { return m.settings }

// SetChipLevel sets the linear output level of the chip.
func (m *Mixer) SetChipLevel(level float64) {
	m.chipLevel = level
	m.updateVolume()
}

// SetStereoSeparation sets how far apart the two output channels are, from
// 0 (mono) to 1 (full separation).
func (m *Mixer) SetStereoSeparation(separation float64) {
	m.separation = max(0, min(1, separation))
}

// Stereo returns whether the mixer produces interleaved stereo output.
func (m *Mixer) Stereo() bool { return m.right != nil }

// SetRouting enables or disables the left and right outputs of a channel.
// A change takes effect with the next amplitude of the channel.
func (m *Mixer) SetRouting(channel psg.ChannelID, left, right bool) {
	if int(channel) >= len(m.routing) {
		return
	}
	m.routing[channel] = [2]bool{left, right}
}

// AddValue adds the amplitude of a channel at the given frame time.
func (m *Mixer) AddValue(channel psg.ChannelID, amplitude, level int32, frameTime uint32) {
	if int(channel) >= len(m.routing) || m.left == nil {
		return
	}

	m.storeLevel(channel, level)

	left, right := amplitude, amplitude
	if m.right != nil {
		if !m.routing[channel][0] {
			left = 0
		}
		if !m.routing[channel][1] {
			right = 0
		}
	}

	// deltas are taken between scaled amplitudes so rounding errors do not accumulate
	scaled := m.scale(left)
	if delta := scaled - m.lastLeft[channel]; delta != 0 {
		m.lastLeft[channel] = scaled
		m.left.AddDelta(uint64(frameTime), delta)
	}
	if m.right == nil {
		return
	}
	scaled = m.scale(right)
	if delta := scaled - m.lastRight[channel]; delta != 0 {
		m.lastRight[channel] = scaled
		m.right.AddDelta(uint64(frameTime), delta)
	}
}

// FinishBuffer ends the frame at the given cycle count, advances the level
// meters and returns the number of samples available per output channel.
func (m *Mixer) FinishBuffer(cycles uint32) int {
	if m.left == nil {
		return 0
	}

	m.left.EndFrame(uint64(cycles))
	if m.right != nil {
		m.right.EndFrame(uint64(cycles))
	}

	for i := range m.meter {
		if m.meterHold[i] > 0 {
			m.meterHold[i]--
			continue
		}
		m.meter[i] = max(0, m.meter[i]-meterFalloff)
	}

	return m.left.SamplesAvailable()
}

// SamplesAvailable returns the number of samples per output channel that can be read.
func (m *Mixer) SamplesAvailable() int {
	if m.left == nil {
		return 0
	}
	return m.left.SamplesAvailable()
}

// ReadBuffer reads the available samples into dst, interleaved left/right in
// stereo mode, and returns the number of samples read per output channel.
func (m *Mixer) ReadBuffer(dst []int16) int {
	if m.left == nil {
		return 0
	}
	if m.right == nil {
		return m.left.ReadSamples(dst, len(dst), false)
	}

	count := min(len(dst)/2, m.left.SamplesAvailable())
	count = m.left.ReadSamples(dst, count, true)
	m.right.ReadSamples(dst[1:], count, true)

	if m.separation < 1 {
		m.narrow(dst[:2*count])
	}
	return count
}

// ChannelLevel returns the meter level of a channel, 0 to 15.
func (m *Mixer) ChannelLevel(channel psg.ChannelID) int {
	if int(channel) >= len(m.meter) {
		return 0
	}
	return int(m.meter[channel])
}

// Clear removes all buffered samples and resets the channel amplitudes and meters.
func (m *Mixer) Clear() {
	if m.left != nil {
		m.left.Clear()
	}
	if m.right != nil {
		m.right.Clear()
	}
	m.lastLeft = [psg.ChannelCount]int32{}
	m.lastRight = [psg.ChannelCount]int32{}
	m.meter = [psg.ChannelCount]float64{}
	m.meterHold = [psg.ChannelCount]int{}
}

func (m *Mixer) applySettings() {
	m.updateVolume()

	for _, buf := range []*Buffer{m.left, m.right} {
		if buf == nil {
			continue
		}
		buf.SetRates(m.clockRate, float64(m.sampleRate))
		buf.SetTreble(float64(m.settings.HighCut), float64(m.settings.HighDamp))
		buf.SetBass(m.settings.LowCut)
	}
	m.lastLeft = [psg.ChannelCount]int32{}
	m.lastRight = [psg.ChannelCount]int32{}
}

func (m *Mixer) updateVolume() {
	volume := m.settings.Volume * chipVolume * m.chipLevel
	m.volumeUnit = volume * (maxSample + 1) / amplitudeRange
}

func (m *Mixer) scale(amplitude int32) int32 {
	return int32(math.Round(float64(amplitude) * m.volumeUnit))
}

// storeLevel maps the amplitude back to a 0..15 level through the volume
// table. A level at or above the meter snaps it up and holds it for a few frames.
func (m *Mixer) storeLevel(channel psg.ChannelID, amplitude int32) {
	if amplitude < 0 {
		amplitude = -amplitude
	}

	level := 0
	for i, v := range psg.VolumeTable {
		if v > 0 && amplitude >= v {
			level = meterMax - i
			break
		}
	}

	if float64(level) >= m.meter[channel] {
		m.meter[channel] = float64(level)
		m.meterHold[channel] = meterHold
	}
}

func (m *Mixer) narrow(samples []int16) {
	mix := (1 - m.separation) / 2
	for i := 0; i+1 < len(samples); i += 2 {
		l, r := float64(samples[i]), float64(samples[i+1])
		samples[i] = int16(l*(1-mix) + r*mix)
		samples[i+1] = int16(r*(1-mix) + l*mix)
	}
}
