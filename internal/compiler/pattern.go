package compiler

import (
	"github.com/retroenv/psgtracker/internal/song"
)

// Pattern stream opcodes. Effects use consecutive opcodes starting at
// opcodeEffect in effect type order.
const (
	opcodeInstrument = 0x80
	opcodeVolume     = 0x81
	opcodeEffect     = 0x82

	noteRelease = 0x7E
	noteHalt    = 0x7F
)

// compilePattern converts a pattern into its byte stream. Every row with
// content emits optional instrument, volume and effect commands followed by
// the note and the number of empty rows after it. Empty rows at the start are
// emitted as a note 0 with a wait count.
func compilePattern(track *song.Track, pattern *song.Pattern, channel int, instruments map[int]int) []byte {
	var data []byte
	rows := track.PatternLength
	columns := track.EffectColumns[channel]

	row := 0
	for row < rows {
		cell := pattern.Cell(row)
		if row == 0 && cell.IsEmpty() {
			data = append(data, song.NoteNone)
		} else {
			data = appendCommands(data, cell, columns, instruments)
			data = append(data, noteByte(cell))
		}

		wait := 0
		for row+1+wait < rows && pattern.Cell(row+1+wait).IsEmpty() {
			wait++
		}
		data = append(data, byte(wait))
		row += 1 + wait
	}
	return data
}

func appendCommands(data []byte, cell song.Cell, columns int, instruments map[int]int) []byte {
	if cell.Instrument != song.NoInstrument {
		if index, ok := instruments[cell.Instrument]; ok {
			data = append(data, opcodeInstrument, byte(index))
		}
	}
	if cell.Volume != song.NoVolume {
		data = append(data, opcodeVolume, cell.Volume)
	}
	for i := 0; i < columns && i < song.MaxEffectColumns; i++ {
		fx := cell.Effects[i]
		if fx.Type == song.EffectNone {
			continue
		}
		data = append(data, opcodeEffect+byte(fx.Type-1), fx.Param)
	}
	return data
}

func noteByte(cell song.Cell) byte {
	switch cell.Note {
	case song.NoteNone:
		return 0
	case song.NoteRelease:
		return noteRelease
	case song.NoteHalt:
		return noteHalt
	default:
		return cell.Octave*12 + cell.Note
	}
}
