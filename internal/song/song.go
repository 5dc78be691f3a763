// Package song contains the in-memory music document that is compiled into
// music data: tracks made of frames, patterns with rows of cells, instruments
// and their sequences.
package song

// Document limits.
const (
	MaxInstruments   = 64
	MaxSequences     = 128
	MaxSequenceItems = 253
	MaxPatterns      = 128
	MaxFrames        = 128
	MaxRows          = 256
	MaxEffectColumns = 4
	MaxTracks        = 64
	MaxTextLength    = 31 // without terminating zero

	// engine speed range in Hz, 0 selects the machine frame rate
	MinEngineSpeed = 16
	MaxEngineSpeed = 400
)

// ChannelCount is the number of channels of the sound chip.
const ChannelCount = 4

// Default song settings.
const (
	DefaultSpeed         = 6
	DefaultTempoNTSC     = 150
	DefaultTempoPAL      = 125
	DefaultPatternLength = 64
)

// Machine is the target machine of a document.
type Machine int

// Supported machines.
const (
	NTSC Machine = iota
	PAL
)

// VibratoStyle selects the vibrato table that the driver uses.
type VibratoStyle int

// Vibrato styles.
const (
	VibratoNew VibratoStyle = iota // sine table
	VibratoOld                     // linear table
)

// Expansion chips. Only ExpansionNone can be compiled.
const (
	ExpansionNone = 0x00
	ExpansionVRC6 = 0x01
	ExpansionVRC7 = 0x02
	ExpansionFDS  = 0x04
	ExpansionMMC5 = 0x08
	ExpansionN163 = 0x10
	ExpansionS5B  = 0x20
)

// Document is a complete music module.
type Document struct {
	Title     string
	Artist    string
	Copyright string

	Machine      Machine
	EngineSpeed  int // ticks per second, 0 uses the machine frame rate
	VibratoStyle VibratoStyle
	Expansion    uint8

	// Sequences are indexed by sequence type and slot, nil entries are unused slots.
	Sequences   [SequenceTypeCount][]*Sequence
	Instruments []*Instrument // indexed by slot, nil entries are unused slots
	Tracks      []*Track
}

// New returns an empty document with one empty track.
func New() *Document {
	return &Document{
		Tracks: []*Track{NewTrack()},
	}
}

// Sequence returns the sequence of the given type and slot or nil.
func (d *Document) Sequence(typ SequenceType, index int) *Sequence {
	if typ < 0 || int(typ) >= SequenceTypeCount {
		return nil
	}
	seqs := d.Sequences[typ]
	if index < 0 || index >= len(seqs) {
		return nil
	}
	return seqs[index]
}

// SetSequence stores a sequence in the given type and slot.
func (d *Document) SetSequence(typ SequenceType, index int, seq *Sequence) {
	for len(d.Sequences[typ]) <= index {
		d.Sequences[typ] = append(d.Sequences[typ], nil)
	}
	d.Sequences[typ][index] = seq
}

// Instrument returns the instrument in the given slot or nil.
func (d *Document) Instrument(index int) *Instrument {
	if index < 0 || index >= len(d.Instruments) {
		return nil
	}
	return d.Instruments[index]
}

// SetInstrument stores an instrument in the given slot.
func (d *Document) SetInstrument(index int, inst *Instrument) {
	for len(d.Instruments) <= index {
		d.Instruments = append(d.Instruments, nil)
	}
	d.Instruments[index] = inst
}

// FrameRate returns the frame rate of the document machine.
func (d *Document) FrameRate() int {
	if d.Machine == PAL {
		return 50
	}
	return 60
}
