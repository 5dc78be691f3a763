package psg

// NoiseMode selects the shift rate of the noise generator.
type NoiseMode uint8

// Noise shift rates.
const (
	NoiseDiv512 NoiseMode = iota
	NoiseDiv1024
	NoiseDiv2048
	NoiseSquare3 // follow the period of square channel 3
)

// LFSRSeed is the shift register value after reset and after every control write.
const LFSRSeed = 0x8000

// whiteNoiseTaps are the feedback taps of the 16 bit white noise polynomial.
const whiteNoiseTaps = 0x0009

var noisePeriods = [3]uint16{0x10, 0x20, 0x40}

// Noise is the noise channel driven by a 16 bit linear feedback shift register.
type Noise struct {
	channel

	mode        NoiseMode
	short       bool // periodic noise, single tap feedback
	attenuation uint8
	active      bool
	lfsr        uint16
	ch3Period   uint16
	counter     uint32
}

// NewNoise returns a noise channel that emits to the given mixer.
func NewNoise(mixer Mixer) *Noise {
	n := &Noise{
		channel: channel{mixer: mixer, id: Noise1, left: true, right: true},
	}
	n.Reset()
	return n
}

// Reset sets the channel to its power-on state.
func (n *Noise) Reset() {
	n.mode = NoiseDiv512
	n.short = false
	n.attenuation = 0xF
	n.lfsr = LFSRSeed
	n.counter = 0
	n.active = true
}

// Write sets the noise control (0) or the attenuation (2). Writing the
// control reseeds the shift register.
func (n *Noise) Write(subAddress, value uint8) {
	switch subAddress {
	case 0:
		n.mode = NoiseMode(value & 0x03)
		n.short = value&0x04 != 0
		n.lfsr = LFSRSeed
	case 2:
		n.attenuation = value & 0x0F
	}
}

// CachePeriod stores the period of square channel 3 for the NoiseSquare3 mode.
func (n *Noise) CachePeriod(period uint16) {
	n.ch3Period = period
}

// Process advances the channel by the given number of chip cycles.
func (n *Noise) Process(cycles uint32) {
	period := n.period()

	for cycles >= n.counter {
		cycles -= n.counter
		n.time += n.counter
		n.counter = uint32(period) << 4

		n.active = !n.active
		if !n.active {
			continue
		}

		n.shift()
		n.mix(VolumeTable[n.attenuation] * int32(n.lfsr&1))
	}

	n.counter -= cycles
	n.time += cycles
}

// Mode returns the current shift rate and whether periodic noise is selected.
func (n *Noise) Mode() (NoiseMode, bool) { return n.mode, n.short }

// Attenuation returns the 4 bit attenuation register.
func (n *Noise) Attenuation() uint8 { return n.attenuation }

// LFSR returns the current shift register state.
func (n *Noise) LFSR() uint16 { return n.lfsr }

func (n *Noise) period() uint16 {
	if n.mode == NoiseSquare3 {
		if n.ch3Period == 0 {
			return 1
		}
		return n.ch3Period
	}
	return noisePeriods[n.mode]
}

func (n *Noise) shift() {
	var feedback uint16
	if n.short {
		feedback = n.lfsr & 1
	} else {
		taps := n.lfsr & whiteNoiseTaps
		if taps != 0 && taps != whiteNoiseTaps {
			feedback = 1
		}
	}
	n.lfsr = n.lfsr>>1 | feedback<<15
}
