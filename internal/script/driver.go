package script

import (
	"fmt"

	"github.com/retroenv/psgtracker/internal/driver"
	lua "github.com/yuin/gopher-lua"
)

// DriverSpec describes a driver image file and its relocation table.
type DriverSpec struct {
	File          string
	Relocs        []driver.Reloc
	VibratoOffset int
}

// convertDriver reads a table of the form
//
//	driver = {
//	  file = "driver.bin",
//	  words = {9, 12},
//	  bytes = {{15, "low", 20}, {17, "high", 20}},
//	  vibrato = 20,
//	}
func convertDriver(tbl *lua.LTable) (*DriverSpec, error) {
	spec := &DriverSpec{
		File:          optString(tbl, "file"),
		VibratoOffset: optInt(tbl, "vibrato", driver.NoVibratoTable),
	}
	if spec.File == "" {
		return nil, fmt.Errorf("%w: driver file missing", ErrInvalidScript)
	}

	if words, ok := tbl.RawGetString("words").(*lua.LTable); ok {
		for i := 1; i <= words.Len(); i++ {
			offset, ok := words.RawGetInt(i).(lua.LNumber)
			if !ok {
				return nil, fmt.Errorf("%w: word relocation %d is not a number", ErrInvalidScript, i)
			}
			spec.Relocs = append(spec.Relocs, driver.Reloc{Offset: int(offset), Kind: driver.RelocWord})
		}
	}

	if bytes, ok := tbl.RawGetString("bytes").(*lua.LTable); ok {
		for i := 1; i <= bytes.Len(); i++ {
			entry, ok := bytes.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("%w: byte relocation %d is not a table", ErrInvalidScript, i)
			}
			reloc, err := convertByteReloc(entry)
			if err != nil {
				return nil, fmt.Errorf("byte relocation %d: %w", i, err)
			}
			spec.Relocs = append(spec.Relocs, reloc)
		}
	}
	return spec, nil
}

func convertByteReloc(tbl *lua.LTable) (driver.Reloc, error) {
	offset, ok1 := tbl.RawGetInt(1).(lua.LNumber)
	kind, ok2 := tbl.RawGetInt(2).(lua.LString)
	value, ok3 := tbl.RawGetInt(3).(lua.LNumber)
	if !ok1 || !ok2 || !ok3 {
		return driver.Reloc{}, fmt.Errorf("%w: expected {offset, kind, value}", ErrInvalidScript)
	}

	reloc := driver.Reloc{Offset: int(offset), Value: int(value)}
	switch kind {
	case "low":
		reloc.Kind = driver.RelocLow
	case "high":
		reloc.Kind = driver.RelocHigh
	default:
		return driver.Reloc{}, fmt.Errorf("%w: unknown relocation kind '%s'", ErrInvalidScript, string(kind))
	}
	return reloc, nil
}
