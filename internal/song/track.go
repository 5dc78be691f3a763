package song

// Cell values that mark an empty field.
const (
	NoInstrument = MaxInstruments
	NoVolume     = 0x10
)

// Note values of a cell. Notes 1 to 12 are C to B.
const (
	NoteNone    = 0
	NoteC       = 1
	NoteB       = 12
	NoteRelease = 13
	NoteHalt    = 14

	MaxOctave = 7
)

// EffectType is the command of an effect column.
type EffectType uint8

// Effect types.
const (
	EffectNone EffectType = iota
	EffectSpeed
	EffectJump
	EffectSkip
	EffectHalt
	EffectVolume
	EffectPortamento
	EffectPortaUp
	EffectPortaDown
	EffectArpeggio
	EffectVibrato
	EffectTremolo
	EffectPitch
	EffectDelay
	EffectDuty
	EffectSlideUp
	EffectSlideDown
	EffectVolumeSlide
	EffectNoteCut

	EffectCount
)

// effectLetters are the tracker column letters of the effect types.
const effectLetters = " FBDCE312047PGVQRAS"

// Letter returns the tracker column letter of the effect.
func (e EffectType) Letter() byte {
	if int(e) < len(effectLetters) {
		return effectLetters[e]
	}
	return '?'
}

// EffectFromLetter returns the effect type for a tracker column letter.
func EffectFromLetter(letter byte) (EffectType, bool) {
	for i := 1; i < len(effectLetters); i++ {
		if effectLetters[i] == letter {
			return EffectType(i), true
		}
	}
	return EffectNone, false
}

// Effect is one effect column of a cell.
type Effect struct {
	Type  EffectType
	Param uint8
}

// Cell is one row of one channel.
type Cell struct {
	Note       uint8
	Octave     uint8
	Instrument int
	Volume     uint8
	Effects    [MaxEffectColumns]Effect
}

// EmptyCell returns a cell without note, instrument, volume and effects.
func EmptyCell() Cell {
	return Cell{Instrument: NoInstrument, Volume: NoVolume}
}

// IsEmpty returns whether the cell has no content.
func (c Cell) IsEmpty() bool {
	if c.Note != NoteNone || c.Instrument != NoInstrument || c.Volume != NoVolume {
		return false
	}
	for _, fx := range c.Effects {
		if fx.Type != EffectNone {
			return false
		}
	}
	return true
}

// Pattern is a list of rows of one channel. Rows past the end of the slice
// are empty.
type Pattern struct {
	Rows []Cell
}

// Cell returns the cell of a row.
func (p *Pattern) Cell(row int) Cell {
	if p == nil || row < 0 || row >= len(p.Rows) {
		return EmptyCell()
	}
	return p.Rows[row]
}

// SetCell stores a cell at the given row, growing the pattern with empty rows.
func (p *Pattern) SetCell(row int, cell Cell) {
	for len(p.Rows) <= row {
		p.Rows = append(p.Rows, EmptyCell())
	}
	p.Rows[row] = cell
}

// Track is one song of the document.
type Track struct {
	Name          string
	PatternLength int
	Speed         int
	Tempo         int

	// Frames holds the pattern index of every channel for every frame.
	Frames [][ChannelCount]int
	// Patterns are indexed by channel and pattern index, nil entries are empty.
	Patterns [ChannelCount][]*Pattern
	// EffectColumns is the number of visible effect columns per channel, 1 to 4.
	EffectColumns [ChannelCount]int
}

// NewTrack returns a track with one frame of empty patterns and default settings.
func NewTrack() *Track {
	t := &Track{
		PatternLength: DefaultPatternLength,
		Speed:         DefaultSpeed,
		Tempo:         DefaultTempoNTSC,
		Frames:        [][ChannelCount]int{{}},
	}
	for i := range t.EffectColumns {
		t.EffectColumns[i] = 1
	}
	return t
}

// Pattern returns the pattern of a channel or nil if it is empty.
func (t *Track) Pattern(channel, index int) *Pattern {
	if channel < 0 || channel >= ChannelCount {
		return nil
	}
	patterns := t.Patterns[channel]
	if index < 0 || index >= len(patterns) {
		return nil
	}
	return patterns[index]
}

// SetPattern stores a pattern of a channel.
func (t *Track) SetPattern(channel, index int, pattern *Pattern) {
	for len(t.Patterns[channel]) <= index {
		t.Patterns[channel] = append(t.Patterns[channel], nil)
	}
	t.Patterns[channel][index] = pattern
}

// PatternAtFrame returns the pattern index of a channel in a frame.
func (t *Track) PatternAtFrame(frame, channel int) int {
	return t.Frames[frame][channel]
}

// IsPatternAddressed returns whether any frame uses the pattern on the channel.
func (t *Track) IsPatternAddressed(index, channel int) bool {
	for _, frame := range t.Frames {
		if frame[channel] == index {
			return true
		}
	}
	return false
}
