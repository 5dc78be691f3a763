package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/psgtracker/internal/song"
	lua "github.com/yuin/gopher-lua"
)

var noteNames = map[string]uint8{
	"C-": 1, "C#": 2, "D-": 3, "D#": 4, "E-": 5, "F-": 6,
	"F#": 7, "G-": 8, "G#": 9, "A-": 10, "A#": 11, "B-": 12,
}

func convertDocument(tbl *lua.LTable) (*song.Document, error) {
	doc := &song.Document{
		Title:       optString(tbl, "title"),
		Artist:      optString(tbl, "author"),
		Copyright:   optString(tbl, "copyright"),
		EngineSpeed: optInt(tbl, "speed", 0),
	}

	switch machine := optString(tbl, "machine"); machine {
	case "", "ntsc":
		doc.Machine = song.NTSC
	case "pal":
		doc.Machine = song.PAL
	default:
		return nil, fmt.Errorf("%w: unknown machine '%s'", ErrInvalidScript, machine)
	}

	switch vibrato := optString(tbl, "vibrato"); vibrato {
	case "", "new":
		doc.VibratoStyle = song.VibratoNew
	case "old":
		doc.VibratoStyle = song.VibratoOld
	default:
		return nil, fmt.Errorf("%w: unknown vibrato style '%s'", ErrInvalidScript, vibrato)
	}

	if err := convertSequences(doc, tbl.RawGetString("sequences")); err != nil {
		return nil, err
	}
	if err := convertInstruments(doc, tbl.RawGetString("instruments")); err != nil {
		return nil, err
	}
	if err := convertTracks(doc, tbl.RawGetString("tracks")); err != nil {
		return nil, err
	}
	return doc, nil
}

func convertSequences(doc *song.Document, value lua.LValue) error {
	tbl, ok := value.(*lua.LTable)
	if !ok {
		return nil
	}

	var err error
	tbl.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		typ, found := song.SequenceTypeFromString(key.String())
		if !found {
			err = fmt.Errorf("%w: unknown sequence type '%s'", ErrInvalidScript, key.String())
			return
		}
		err = forEachSlot(value, song.MaxSequences, func(index int, entry *lua.LTable) error {
			seq, err := convertSequence(entry)
			if err != nil {
				return fmt.Errorf("%s sequence %d: %w", typ, index, err)
			}
			doc.SetSequence(typ, index, seq)
			return nil
		})
	})
	return err
}

func convertSequence(tbl *lua.LTable) (*song.Sequence, error) {
	seq := song.NewSequence()
	items, ok := tbl.RawGetString("items").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: missing items", ErrInvalidScript)
	}
	for i := 1; i <= items.Len(); i++ {
		n, ok := items.RawGetInt(i).(lua.LNumber)
		if !ok || n < -128 || n > 127 {
			return nil, fmt.Errorf("%w: item %d is not a value from -128 to 127", ErrInvalidScript, i)
		}
		seq.Items = append(seq.Items, int8(n))
	}

	seq.Loop = optInt(tbl, "loop", song.NoPoint)
	seq.Release = optInt(tbl, "release", song.NoPoint)
	setting, err := optRange(tbl, "setting", 0, 0xFF)
	if err != nil {
		return nil, err
	}
	seq.Setting = uint8(setting)
	return seq, nil
}

func convertInstruments(doc *song.Document, value lua.LValue) error {
	return forEachSlot(value, song.MaxInstruments, func(index int, entry *lua.LTable) error {
		inst := &song.Instrument{Name: optString(entry, "name")}
		for typ := range song.SequenceTypeCount {
			name := song.SequenceType(typ).String()
			if slot := optInt(entry, name, song.NoPoint); slot != song.NoPoint {
				inst.SetSequence(song.SequenceType(typ), slot)
			}
		}
		doc.SetInstrument(index, inst)
		return nil
	})
}

func convertTracks(doc *song.Document, value lua.LValue) error {
	tbl, ok := value.(*lua.LTable)
	if !ok || tbl.Len() == 0 {
		doc.Tracks = []*song.Track{song.NewTrack()}
		return nil
	}

	for i := 1; i <= tbl.Len(); i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: track %d is not a table", ErrInvalidScript, i)
		}
		track, err := convertTrack(doc, entry)
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		doc.Tracks = append(doc.Tracks, track)
	}
	return nil
}

func convertTrack(doc *song.Document, tbl *lua.LTable) (*song.Track, error) {
	track := song.NewTrack()
	track.Name = optString(tbl, "name")
	track.PatternLength = optInt(tbl, "rows", song.DefaultPatternLength)
	track.Speed = optInt(tbl, "speed", song.DefaultSpeed)
	defaultTempo := song.DefaultTempoNTSC
	if doc.Machine == song.PAL {
		defaultTempo = song.DefaultTempoPAL
	}
	track.Tempo = optInt(tbl, "tempo", defaultTempo)

	if columns, ok := tbl.RawGetString("columns").(*lua.LTable); ok {
		for ch := range song.ChannelCount {
			if n, ok := columns.RawGetInt(ch + 1).(lua.LNumber); ok {
				track.EffectColumns[ch] = int(n)
			}
		}
	}

	if frames, ok := tbl.RawGetString("frames").(*lua.LTable); ok && frames.Len() > 0 {
		track.Frames = nil
		for i := 1; i <= frames.Len(); i++ {
			row, ok := frames.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("%w: frame %d is not a table", ErrInvalidScript, i)
			}
			var frame [song.ChannelCount]int
			for ch := range song.ChannelCount {
				frame[ch] = int(lua.LVAsNumber(row.RawGetInt(ch + 1)))
			}
			track.Frames = append(track.Frames, frame)
		}
	}

	patterns, ok := tbl.RawGetString("patterns").(*lua.LTable)
	if !ok {
		return track, nil
	}
	for ch := range song.ChannelCount {
		err := forEachSlot(patterns.RawGetInt(ch+1), song.MaxPatterns, func(index int, entry *lua.LTable) error {
			pattern, err := convertPattern(entry)
			if err != nil {
				return fmt.Errorf("pattern %d of channel %d: %w", index, ch, err)
			}
			track.SetPattern(ch, index, pattern)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return track, nil
}

func convertPattern(tbl *lua.LTable) (*song.Pattern, error) {
	pattern := &song.Pattern{}
	err := forEachSlot(tbl, song.MaxRows, func(row int, entry *lua.LTable) error {
		cell, err := convertCell(entry)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		pattern.SetCell(row, cell)
		return nil
	})
	return pattern, err
}

func convertCell(tbl *lua.LTable) (song.Cell, error) {
	cell := song.EmptyCell()

	if note := optString(tbl, "note"); note != "" {
		n, octave, err := ParseNote(note)
		if err != nil {
			return cell, err
		}
		cell.Note = n
		cell.Octave = octave
	}
	cell.Instrument = optInt(tbl, "inst", song.NoInstrument)
	volume, err := optRange(tbl, "vol", song.NoVolume, song.NoVolume-1)
	if err != nil {
		return cell, err
	}
	cell.Volume = uint8(volume)

	fx, ok := tbl.RawGetString("fx").(*lua.LTable)
	if !ok {
		return cell, nil
	}
	if fx.Len() > song.MaxEffectColumns {
		return cell, fmt.Errorf("%w: %d effect columns", ErrInvalidScript, fx.Len())
	}
	for i := 1; i <= fx.Len(); i++ {
		effect, err := ParseEffect(lua.LVAsString(fx.RawGetInt(i)))
		if err != nil {
			return cell, err
		}
		cell.Effects[i-1] = effect
	}
	return cell, nil
}

// ParseNote parses a note in tracker notation like "C-4" or "F#2". "===" is
// a note release and "---" a note halt.
func ParseNote(s string) (uint8, uint8, error) {
	switch s {
	case "===":
		return song.NoteRelease, 0, nil
	case "---":
		return song.NoteHalt, 0, nil
	}

	if len(s) != 3 {
		return 0, 0, fmt.Errorf("%w: invalid note '%s'", ErrInvalidScript, s)
	}
	note, ok := noteNames[strings.ToUpper(s[:2])]
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid note '%s'", ErrInvalidScript, s)
	}
	octave := s[2] - '0'
	if octave > song.MaxOctave {
		return 0, 0, fmt.Errorf("%w: invalid octave in note '%s'", ErrInvalidScript, s)
	}
	return note, octave, nil
}

// ParseEffect parses an effect column like "F06", a letter followed by a
// hexadecimal parameter.
func ParseEffect(s string) (song.Effect, error) {
	if len(s) != 3 {
		return song.Effect{}, fmt.Errorf("%w: invalid effect '%s'", ErrInvalidScript, s)
	}
	typ, ok := song.EffectFromLetter(strings.ToUpper(s)[0])
	if !ok {
		return song.Effect{}, fmt.Errorf("%w: unknown effect '%s'", ErrInvalidScript, s)
	}
	param, err := strconv.ParseUint(s[1:], 16, 8)
	if err != nil {
		return song.Effect{}, fmt.Errorf("%w: invalid effect parameter '%s'", ErrInvalidScript, s)
	}
	return song.Effect{Type: typ, Param: uint8(param)}, nil
}

// forEachSlot calls fn for all table entries with a numeric key. Keys are
// used as slot indexes below limit, entries that are not tables are an error.
func forEachSlot(value lua.LValue, limit int, fn func(index int, entry *lua.LTable) error) error {
	tbl, ok := value.(*lua.LTable)
	if !ok {
		return nil
	}

	var err error
	tbl.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		index, ok := key.(lua.LNumber)
		if !ok || index < 0 {
			err = fmt.Errorf("%w: invalid slot '%s'", ErrInvalidScript, key.String())
			return
		}
		if index >= lua.LNumber(limit) {
			err = fmt.Errorf("%w: slot %s, maximum is %d", song.ErrLimitExceeded, key.String(), limit-1)
			return
		}
		entry, ok := value.(*lua.LTable)
		if !ok {
			err = fmt.Errorf("%w: slot %d is not a table", ErrInvalidScript, int(index))
			return
		}
		err = fn(int(index), entry)
	})
	return err
}

func optString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func optInt(tbl *lua.LTable, key string, def int) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return def
}

// optRange returns the number stored under key, which has to be in the
// range 0 to maxValue if it is set.
func optRange(tbl *lua.LTable, key string, def, maxValue int) (int, error) {
	n, ok := tbl.RawGetString(key).(lua.LNumber)
	if !ok {
		return def, nil
	}
	if n < 0 || n > lua.LNumber(maxValue) {
		return 0, fmt.Errorf("%w: %s %s is outside of 0 to %d", ErrInvalidScript, key, n.String(), maxValue)
	}
	return int(n), nil
}
