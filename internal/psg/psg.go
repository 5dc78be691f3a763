// Package psg implements a cycle accurate emulation of the SN76489 family
// programmable sound generator: three square channels and one noise channel.
package psg

// ChannelID identifies one of the four chip channels.
type ChannelID uint8

// Channel identifiers in register order.
const (
	Square1 ChannelID = iota
	Square2
	Square3
	Noise1

	ChannelCount = 4
)

var channelNames = [ChannelCount]string{"square1", "square2", "square3", "noise"}

func (id ChannelID) String() string {
	if int(id) < len(channelNames) {
		return channelNames[id]
	}
	return "unknown"
}

// CutoffPeriod is the highest period that is forced silent. The real chip
// output filter removes tones above the audible range.
const CutoffPeriod = 0x06

// VolumeTable maps a 4 bit attenuation to the emitted amplitude, 2 dB per step.
var VolumeTable = [16]int32{
	1516, 1205, 957, 760, 603, 479, 381, 303, 240, 191, 152, 120, 96, 76, 60, 0,
}

// Mixer receives amplitude changes of the channels together with the frame
// relative cycle time they happened at.
type Mixer interface {
	AddValue(channel ChannelID, amplitude, level int32, frameTime uint32)
}

// StereoRouter is implemented by mixers that support per channel stereo routing.
type StereoRouter interface {
	SetRouting(channel ChannelID, left, right bool)
}

// RegisterLogger receives every register write accepted by the chip and the
// cycles elapsed between them.
type RegisterLogger interface {
	LogWrite(address uint16, value uint8)
	LogCycles(cycles uint32)
}

// Channel is the shared interface of the closed set of channel types,
// *Square and *Noise.
type Channel interface {
	ID() ChannelID
	Reset()
	Write(subAddress, value uint8)
	Process(cycles uint32)
	EndFrame()

	base() *channel
}

// channel contains the timing and mixing state shared by all channel types.
type channel struct {
	mixer Mixer
	id    ChannelID
	time  uint32 // cycle position, reset every frame

	left  bool
	right bool
}

func (c *channel) ID() ChannelID { return c.id }

// EndFrame resets the frame relative cycle position.
func (c *channel) EndFrame() { c.time = 0 }

// Routing returns the stereo output enables of the channel.
func (c *channel) Routing() (left, right bool) { return c.left, c.right }

func (c *channel) base() *channel { return c }

func (c *channel) mix(value int32) {
	c.mixer.AddValue(c.id, value, value, c.time)
}
