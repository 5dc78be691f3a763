package psg

import (
	"encoding/binary"
	"errors"
)

const (
	serializeVersion = 1
	squareStateSize  = 8
	noiseStateSize   = 12
	chipStateSize    = 1 + 3*squareStateSize + noiseStateSize + 2
)

var (
	errBufferTooSmall     = errors.New("psg: state buffer too small")
	errUnsupportedVersion = errors.New("psg: unsupported state version")
)

// SerializeSize returns the number of bytes needed to serialize the chip state.
func (c *Chip) SerializeSize() int {
	return chipStateSize
}

// Serialize writes the mutable chip state into buf in a little-endian binary
// format. Frame relative time and the attached mixer are not included.
func (c *Chip) Serialize(buf []byte) error {
	if len(buf) < chipStateSize {
		return errBufferTooSmall
	}

	buf[0] = serializeVersion
	pos := 1
	for _, sq := range c.squares {
		binary.LittleEndian.PutUint16(buf[pos:], sq.period)
		buf[pos+2] = sq.attenuation
		buf[pos+3] = boolByte(sq.active)
		binary.LittleEndian.PutUint32(buf[pos+4:], sq.counter)
		pos += squareStateSize
	}

	n := c.noise
	buf[pos] = uint8(n.mode)
	buf[pos+1] = boolByte(n.short)
	buf[pos+2] = n.attenuation
	buf[pos+3] = boolByte(n.active)
	binary.LittleEndian.PutUint16(buf[pos+4:], n.lfsr)
	binary.LittleEndian.PutUint16(buf[pos+6:], n.ch3Period)
	binary.LittleEndian.PutUint32(buf[pos+8:], n.counter)
	pos += noiseStateSize

	buf[pos] = c.latch
	buf[pos+1] = c.stereo
	return nil
}

// Deserialize restores the chip state from a buffer produced by Serialize.
func (c *Chip) Deserialize(buf []byte) error {
	if len(buf) < chipStateSize {
		return errBufferTooSmall
	}
	if buf[0] != serializeVersion {
		return errUnsupportedVersion
	}

	pos := 1
	for _, sq := range c.squares {
		sq.period = binary.LittleEndian.Uint16(buf[pos:]) & 0x3FF
		sq.attenuation = buf[pos+2] & 0x0F
		sq.active = buf[pos+3] != 0
		sq.counter = binary.LittleEndian.Uint32(buf[pos+4:])
		pos += squareStateSize
	}

	n := c.noise
	n.mode = NoiseMode(buf[pos] & 0x03)
	n.short = buf[pos+1] != 0
	n.attenuation = buf[pos+2] & 0x0F
	n.active = buf[pos+3] != 0
	n.lfsr = binary.LittleEndian.Uint16(buf[pos+4:])
	n.ch3Period = binary.LittleEndian.Uint16(buf[pos+6:])
	n.counter = binary.LittleEndian.Uint32(buf[pos+8:])
	pos += noiseStateSize

	c.latch = buf[pos] % 6 &^ 1
	c.setStereo(buf[pos+1])
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
