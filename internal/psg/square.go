package psg

// Square is a tone channel with a 10 bit period and 4 bit attenuation.
type Square struct {
	channel

	period      uint16
	attenuation uint8
	active      bool
	counter     uint32
}

// NewSquare returns a square channel that emits to the given mixer.
func NewSquare(mixer Mixer, id ChannelID) *Square {
	s := &Square{
		channel: channel{mixer: mixer, id: id, left: true, right: true},
	}
	s.Reset()
	return s
}

// Reset sets the channel to its power-on state: period 0, silent, oscillator low.
func (s *Square) Reset() {
	s.period = 0
	s.attenuation = 0xF
	s.counter = 0
	s.active = false
}

// Write sets the period low nibble (0), the period high bits (1) or the
// attenuation (2). Other sub-addresses have no effect.
func (s *Square) Write(subAddress, value uint8) {
	switch subAddress {
	case 0:
		s.period = (s.period & 0x3F0) | uint16(value&0x0F)
	case 1:
		s.period = (s.period & 0x00F) | uint16(value&0x3F)<<4
	case 2:
		s.attenuation = value & 0x0F
	}
}

// Process advances the channel by the given number of chip cycles.
func (s *Square) Process(cycles uint32) {
	period := s.period
	if period == 0 {
		period = 1
	}

	for cycles >= s.counter {
		cycles -= s.counter
		s.time += s.counter
		s.counter = uint32(period) << 4

		if period > CutoffPeriod {
			s.active = !s.active
		} else {
			s.active = false
		}

		if s.active {
			s.mix(VolumeTable[s.attenuation])
		} else {
			s.mix(0)
		}
	}

	s.counter -= cycles
	s.time += cycles
}

// Period returns the 10 bit period register.
func (s *Square) Period() uint16 { return s.period }

// Attenuation returns the 4 bit attenuation register.
func (s *Square) Attenuation() uint8 { return s.attenuation }
