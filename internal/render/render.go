// Package render converts compiled music data into binary images and
// exports them together with the driver as BIN, NSF or NES files.
package render

import (
	"github.com/retroenv/psgtracker/internal/compiler"
)

// Binary returns the chunks in order, words in little endian.
func Binary(chunks []*compiler.Chunk) []byte {
	var buf []byte
	for _, chunk := range chunks {
		buf = append(buf, chunk.Bytes()...)
	}
	return buf
}

// Banked returns the music data of a bank switched result. Chunks in the
// switchable banks are padded to start at the position of their bank, the
// returned data starts directly after the driver.
func Banked(result *compiler.Result) []byte {
	var buf []byte
	for _, chunk := range result.Chunks {
		position := compiler.Position(chunk, result.DriverSize) - result.DriverSize
		if padding := position - len(buf); padding > 0 {
			buf = append(buf, make([]byte, padding)...)
		}
		buf = append(buf, chunk.Bytes()...)
	}
	return buf
}
