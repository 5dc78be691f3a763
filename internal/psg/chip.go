package psg

// Register addresses of the chip. The squares use two addresses each, the
// even one latches the channel and sets the low period nibble, the odd one
// sets the attenuation.
const (
	NoiseControlPort     = 0x06
	NoiseAttenuationPort = 0x07
	StereoPort           = 0x4F   // per channel left/right enable bits
	PeriodHighPort       = 0xFFFF // high period bits of the latched square
)

// Chip aggregates the four channels and the address latch.
type Chip struct {
	squares [3]*Square
	noise   *Noise

	latch  uint8 // address of the latched square: 0, 2 or 4
	stereo uint8

	// state of the real chip byte protocol decoder
	rawChannel uint8
	rawVolume  bool

	mixer  Mixer
	logger RegisterLogger
}

// New returns a chip in its power-on state that emits to the given mixer.
func New(mixer Mixer) *Chip {
	c := &Chip{
		mixer: mixer,
		noise: NewNoise(mixer),
	}
	for i := range c.squares {
		c.squares[i] = NewSquare(mixer, ChannelID(i))
	}
	c.Reset()
	return c
}

// SetLogger sets a logger that receives all register writes. Passing nil
// disables logging.
func (c *Chip) SetLogger(logger RegisterLogger) {
	c.logger = logger
}

// Reset resets all channels, the address latch and the stereo routing.
func (c *Chip) Reset() {
	for _, ch := range c.Channels() {
		ch.Reset()
	}
	c.latch = 0
	c.rawChannel = 0
	c.rawVolume = false
	c.setStereo(0xFF)
}

// Channels returns the four channels in register order.
func (c *Chip) Channels() [ChannelCount]Channel {
	return [ChannelCount]Channel{c.squares[0], c.squares[1], c.squares[2], c.noise}
}

// Square returns the square channel with the given index 0..2.
func (c *Chip) Square(index int) *Square { return c.squares[index] }

// Noise returns the noise channel.
func (c *Chip) Noise() *Noise { return c.noise }

// Stereo returns the stereo routing byte.
func (c *Chip) Stereo() uint8 { return c.stereo }

// Process advances all channels by the same number of cycles.
func (c *Chip) Process(cycles uint32) {
	for _, sq := range c.squares {
		sq.Process(cycles)
	}
	c.noise.Process(cycles)

	if c.logger != nil && cycles > 0 {
		c.logger.LogCycles(cycles)
	}
}

// EndFrame resets the frame relative time of all channels.
func (c *Chip) EndFrame() {
	for _, sq := range c.squares {
		sq.EndFrame()
	}
	c.noise.EndFrame()
}

// Write writes a value to a register address.
func (c *Chip) Write(address uint16, value uint8) {
	switch address {
	case 0, 2, 4:
		c.latch = uint8(address)
		c.squares[address/2].Write(0, value&0x0F)

	case 1, 3, 5:
		c.squares[address/2].Write(2, value&0x0F)

	case NoiseControlPort:
		c.noise.Write(0, value&0x07)

	case NoiseAttenuationPort:
		c.noise.Write(2, value&0x0F)

	case StereoPort:
		c.setStereo(value)

	default:
		c.squares[c.latch/2].Write(1, value&0x3F)
		if ChannelID(c.latch/2) == Square3 {
			c.noise.CachePeriod(c.squares[Square3].Period())
		}
	}

	if address == 4 || address == 5 {
		c.noise.CachePeriod(c.squares[Square3].Period())
	}

	if c.logger != nil {
		c.logger.LogWrite(address, value)
	}
}

// WriteRaw decodes a byte of the real chip protocol. A byte with bit 7 set
// latches a channel and register type and carries the low 4 data bits, a
// byte with bit 7 clear carries the data for the latched register.
func (c *Chip) WriteRaw(b uint8) {
	if b&0x80 != 0 {
		c.rawChannel = (b >> 5) & 0x03
		c.rawVolume = b&0x10 != 0
		data := b & 0x0F

		switch {
		case c.rawChannel == uint8(Noise1) && c.rawVolume:
			c.Write(NoiseAttenuationPort, data)
		case c.rawChannel == uint8(Noise1):
			c.Write(NoiseControlPort, data)
		case c.rawVolume:
			c.Write(uint16(c.rawChannel)*2+1, data)
		default:
			c.Write(uint16(c.rawChannel)*2, data)
		}
		return
	}

	switch {
	case c.rawChannel == uint8(Noise1) && c.rawVolume:
		c.Write(NoiseAttenuationPort, b&0x0F)
	case c.rawChannel == uint8(Noise1):
		c.Write(NoiseControlPort, b&0x07)
	case c.rawVolume:
		c.Write(uint16(c.rawChannel)*2+1, b&0x0F)
	default:
		if c.latch/2 != c.rawChannel {
			c.latch = c.rawChannel * 2
		}
		c.Write(PeriodHighPort, b&0x3F)
	}
}

func (c *Chip) setStereo(value uint8) {
	c.stereo = value
	router, _ := c.mixer.(StereoRouter)

	for i, ch := range c.Channels() {
		b := ch.base()
		b.left = value&(1<<(i+4)) != 0
		b.right = value&(1<<i) != 0
		if router != nil {
			router.SetRouting(b.id, b.left, b.right)
		}
	}
}
