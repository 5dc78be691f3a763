package song

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded is returned when a document exceeds a fixed size limit.
var ErrLimitExceeded = errors.New("limit exceeded")

// Validate checks the document against the fixed limits of the music data format.
func (d *Document) Validate() error {
	if d.EngineSpeed != 0 && (d.EngineSpeed < MinEngineSpeed || d.EngineSpeed > MaxEngineSpeed) {
		return fmt.Errorf("%w: engine speed %d Hz, allowed are %d to %d",
			ErrLimitExceeded, d.EngineSpeed, MinEngineSpeed, MaxEngineSpeed)
	}
	if len(d.Instruments) > MaxInstruments {
		return fmt.Errorf("%w: %d instruments, maximum is %d", ErrLimitExceeded, len(d.Instruments), MaxInstruments)
	}
	for typ, seqs := range d.Sequences {
		if len(seqs) > MaxSequences {
			return fmt.Errorf("%w: %d %s sequences, maximum is %d",
				ErrLimitExceeded, len(seqs), SequenceType(typ), MaxSequences)
		}
		for i, seq := range seqs {
			if seq != nil && len(seq.Items) > MaxSequenceItems {
				return fmt.Errorf("%w: %s sequence %d has %d items, maximum is %d",
					ErrLimitExceeded, SequenceType(typ), i, len(seq.Items), MaxSequenceItems)
			}
		}
	}

	for i, inst := range d.Instruments {
		if inst == nil {
			continue
		}
		for typ, seq := range inst.Sequences {
			if seq.Enabled && (seq.Index < 0 || seq.Index >= MaxSequences) {
				return fmt.Errorf("%w: instrument %d uses %s sequence %d",
					ErrLimitExceeded, i, SequenceType(typ), seq.Index)
			}
		}
	}

	if len(d.Tracks) == 0 || len(d.Tracks) > MaxTracks {
		return fmt.Errorf("%w: %d tracks, allowed are 1 to %d", ErrLimitExceeded, len(d.Tracks), MaxTracks)
	}
	for i, track := range d.Tracks {
		if err := track.validate(); err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
	}
	return nil
}

func (t *Track) validate() error {
	if len(t.Frames) == 0 || len(t.Frames) > MaxFrames {
		return fmt.Errorf("%w: %d frames, allowed are 1 to %d", ErrLimitExceeded, len(t.Frames), MaxFrames)
	}
	if t.PatternLength < 1 || t.PatternLength > MaxRows {
		return fmt.Errorf("%w: pattern length %d, allowed are 1 to %d", ErrLimitExceeded, t.PatternLength, MaxRows)
	}
	if t.Speed < 0 || t.Speed > 0xFF || t.Tempo < 0 || t.Tempo > 0xFF {
		return fmt.Errorf("%w: speed %d, tempo %d", ErrLimitExceeded, t.Speed, t.Tempo)
	}

	for ch := range ChannelCount {
		if cols := t.EffectColumns[ch]; cols < 0 || cols > MaxEffectColumns {
			return fmt.Errorf("%w: channel %d has %d effect columns", ErrLimitExceeded, ch, cols)
		}
		if len(t.Patterns[ch]) > MaxPatterns {
			return fmt.Errorf("%w: channel %d has %d patterns, maximum is %d",
				ErrLimitExceeded, ch, len(t.Patterns[ch]), MaxPatterns)
		}
		for i, pattern := range t.Patterns[ch] {
			if pattern == nil {
				continue
			}
			if len(pattern.Rows) > MaxRows {
				return fmt.Errorf("%w: pattern %d of channel %d has %d rows", ErrLimitExceeded, i, ch, len(pattern.Rows))
			}
			if err := validateCells(pattern); err != nil {
				return fmt.Errorf("pattern %d of channel %d: %w", i, ch, err)
			}
		}
	}

	for i, frame := range t.Frames {
		for ch, index := range frame {
			if index < 0 || index >= MaxPatterns {
				return fmt.Errorf("%w: frame %d channel %d uses pattern %d", ErrLimitExceeded, i, ch, index)
			}
		}
	}
	return nil
}

func validateCells(pattern *Pattern) error {
	for row, cell := range pattern.Rows {
		if cell.Note > NoteHalt || cell.Octave > MaxOctave {
			return fmt.Errorf("%w: row %d has invalid note %d octave %d", ErrLimitExceeded, row, cell.Note, cell.Octave)
		}
		if cell.Instrument < 0 || cell.Instrument > NoInstrument {
			return fmt.Errorf("%w: row %d uses instrument %d", ErrLimitExceeded, row, cell.Instrument)
		}
		if cell.Volume > NoVolume {
			return fmt.Errorf("%w: row %d has volume %d", ErrLimitExceeded, row, cell.Volume)
		}
		for _, fx := range cell.Effects {
			if fx.Type >= EffectCount {
				return fmt.Errorf("%w: row %d has unknown effect %d", ErrLimitExceeded, row, fx.Type)
			}
		}
	}
	return nil
}
