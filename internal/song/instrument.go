package song

// SequenceType is the parameter that a sequence modulates.
type SequenceType int

// Sequence types, in the order used by instruments and sequence labels.
const (
	SequenceVolume SequenceType = iota
	SequenceArpeggio
	SequencePitch
	SequenceHiPitch
	SequenceDuty // noise mode for the noise channel

	SequenceTypeCount = 5
)

var sequenceTypeNames = [SequenceTypeCount]string{"volume", "arpeggio", "pitch", "hipitch", "duty"}

func (t SequenceType) String() string {
	if t >= 0 && int(t) < len(sequenceTypeNames) {
		return sequenceTypeNames[t]
	}
	return "unknown"
}

// SequenceTypeFromString returns the sequence type for a name.
func SequenceTypeFromString(name string) (SequenceType, bool) {
	for i, n := range sequenceTypeNames {
		if n == name {
			return SequenceType(i), true
		}
	}
	return 0, false
}

// NoPoint marks an unset loop or release point.
const NoPoint = -1

// Sequence is a list of values stepped once per tick.
type Sequence struct {
	Items   []int8
	Loop    int // NoPoint if the sequence does not loop
	Release int // NoPoint if the sequence has no release point
	Setting uint8
}

// NewSequence returns a sequence without loop and release point.
func NewSequence(items ...int8) *Sequence {
	return &Sequence{
		Items:   items,
		Loop:    NoPoint,
		Release: NoPoint,
	}
}

// InstrumentSequence links an instrument to a sequence slot.
type InstrumentSequence struct {
	Enabled bool
	Index   int
}

// Instrument references up to one sequence per sequence type.
type Instrument struct {
	Name      string
	Sequences [SequenceTypeCount]InstrumentSequence
}

// SetSequence enables the sequence of the given type and slot.
func (i *Instrument) SetSequence(typ SequenceType, index int) {
	i.Sequences[typ] = InstrumentSequence{Enabled: true, Index: index}
}
