package driver

import (
	"math"

	"github.com/retroenv/psgtracker/internal/song"
)

// VibratoTableSize is the size of the vibrato table, 16 depths of 16 phases.
const VibratoTableSize = 256

var (
	newVibratoDepth = [16]float64{1.0, 1.5, 2.5, 4.0, 5.0, 7.0, 10.0, 12.0, 14.0, 17.0, 22.0, 30.0, 44.0, 64.0, 96.0, 128.0}
	oldVibratoDepth = [16]int{1, 1, 2, 3, 4, 7, 8, 15, 16, 31, 32, 63, 64, 127, 128, 255}
)

// VibratoTable returns the quarter wave vibrato table of the style, indexed
// by depth*16 + phase.
func VibratoTable(style song.VibratoStyle) [VibratoTableSize]byte {
	var table [VibratoTableSize]byte
	for depth := range 16 {
		for phase := range 16 {
			var value int
			if style == song.VibratoOld {
				value = phase*oldVibratoDepth[depth]/16 + 1
			} else {
				angle := float64(phase) / 16.0 * (math.Pi / 2.0)
				value = int(math.Sin(angle) * newVibratoDepth[depth])
			}
			table[depth*16+phase] = byte(min(value, 0xFF))
		}
	}
	return table
}
