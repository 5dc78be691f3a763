// Package driver contains the sound driver image that plays compiled music
// data and the code that relocates it to its load address.
package driver

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/psgtracker/internal/song"
)

// Entry points relative to the driver start.
const (
	InitOffset = 8
	PlayOffset = InitOffset + 3

	// NoVibratoTable marks a driver without a patchable vibrato table.
	NoVibratoTable = -1

	songAddressSize = 2
	minSize         = PlayOffset + 3 + songAddressSize
)

// ErrInvalidDriver is returned for a driver image that can not be loaded.
var ErrInvalidDriver = errors.New("invalid driver")

// RelocKind selects how a relocation entry patches the image.
type RelocKind int

// Relocation kinds.
const (
	RelocWord RelocKind = iota // add the origin to the little endian word at the offset
	RelocLow                   // write the low byte of value plus origin
	RelocHigh                  // write the high byte of value plus origin
)

// Reloc is one relocation entry.
type Reloc struct {
	Offset int
	Kind   RelocKind
	Value  int // driver relative address for byte relocations, negative values wrap
}

// Driver is a sound driver image. The init routine is at InitOffset, the
// play routine at PlayOffset and the last two bytes hold the address of the
// music data.
type Driver struct {
	Name          string
	Code          []byte
	Relocs        []Reloc
	VibratoOffset int
}

// New returns a driver after checking that all patch locations are inside
// the image.
func New(name string, code []byte, relocs []Reloc, vibratoOffset int) (*Driver, error) {
	d := &Driver{
		Name:          name,
		Code:          code,
		Relocs:        relocs,
		VibratoOffset: vibratoOffset,
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) validate() error {
	if len(d.Code) < minSize {
		return fmt.Errorf("%w: image has %d bytes, minimum is %d", ErrInvalidDriver, len(d.Code), minSize)
	}
	if len(d.Code) >= 0x8000 {
		return fmt.Errorf("%w: image has %d bytes", ErrInvalidDriver, len(d.Code))
	}
	limit := len(d.Code) - songAddressSize
	for _, reloc := range d.Relocs {
		size := 1
		if reloc.Kind == RelocWord {
			size = 2
		}
		if reloc.Offset < 0 || reloc.Offset+size > limit {
			return fmt.Errorf("%w: relocation at offset %d is outside of the image", ErrInvalidDriver, reloc.Offset)
		}
	}
	if d.VibratoOffset != NoVibratoTable &&
		(d.VibratoOffset < 0 || d.VibratoOffset+VibratoTableSize > limit) {
		return fmt.Errorf("%w: vibrato table at offset %d is outside of the image", ErrInvalidDriver, d.VibratoOffset)
	}
	return nil
}

// Size returns the size of the driver image.
func (d *Driver) Size() int {
	return len(d.Code)
}

// Load returns a copy of the driver relocated to the origin, with the
// vibrato table of the given style and the music data address set.
func (d *Driver) Load(origin uint16, style song.VibratoStyle, musicAddress uint16) ([]byte, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	image := make([]byte, len(d.Code))
	copy(image, d.Code)
	Relocate(image, d.Relocs, origin)

	if d.VibratoOffset != NoVibratoTable {
		table := VibratoTable(style)
		copy(image[d.VibratoOffset:], table[:])
	}

	binary.LittleEndian.PutUint16(image[len(image)-songAddressSize:], musicAddress)
	return image, nil
}

// Relocate patches all relocation entries of the image for the origin.
func Relocate(image []byte, relocs []Reloc, origin uint16) {
	for _, reloc := range relocs {
		switch reloc.Kind {
		case RelocWord:
			value := binary.LittleEndian.Uint16(image[reloc.Offset:])
			binary.LittleEndian.PutUint16(image[reloc.Offset:], value+origin)

		case RelocLow, RelocHigh:
			value := reloc.Value
			if value < 0 {
				value += 0x10000
			}
			address := uint16(value) + origin
			if reloc.Kind == RelocLow {
				image[reloc.Offset] = byte(address)
			} else {
				image[reloc.Offset] = byte(address >> 8)
			}
		}
	}
}
