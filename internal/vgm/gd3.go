package vgm

import (
	"encoding/binary"
	"unicode/utf16"
)

const gd3Version = 0x100

// GD3 contains the song information tag of a VGM file.
type GD3 struct {
	Track     string
	Game      string
	System    string
	Author    string
	Date      string
	Converter string
	Notes     string
}

// Bytes returns the encoded tag. Every text is stored as zero terminated
// UTF-16LE, the Japanese variants are left empty.
func (g GD3) Bytes() []byte {
	fields := []string{
		g.Track, "",
		g.Game, "",
		g.System, "",
		g.Author, "",
		g.Date,
		g.Converter,
		g.Notes,
	}

	var data []byte
	for _, field := range fields {
		for _, unit := range utf16.Encode([]rune(field)) {
			data = binary.LittleEndian.AppendUint16(data, unit)
		}
		data = append(data, 0, 0)
	}

	buf := make([]byte, 12, 12+len(data))
	copy(buf, "Gd3 ")
	binary.LittleEndian.PutUint32(buf[4:], gd3Version)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(data)))
	return append(buf, data...)
}
