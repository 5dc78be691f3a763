// Package assembler defines the available assembler output formats.
package assembler

import (
	"fmt"
	"strings"

	"github.com/retroenv/psgtracker/internal/compiler"
)

const (
	Asm6   = "asm6"
	Ca65   = "ca65"
	Nesasm = "nesasm"
)

// Info describes the music data written to an assembly file.
type Info struct {
	Title  string
	Artist string
	Result *compiler.Result
}

// Aliases returns the constants that are written before the music data.
func (i Info) Aliases() map[string]uint16 {
	aliases := map[string]uint16{
		"FT_DATA_SIZE": uint16(i.Result.DataSize),
	}
	if i.Result.BankSwitched {
		aliases["FT_LAST_BANK"] = uint16(i.Result.LastBank)
	}
	return aliases
}

// Validate returns an error for an unsupported assembler name.
func Validate(name string) error {
	switch strings.ToLower(name) {
	case Asm6, Ca65, Nesasm:
		return nil
	default:
		return fmt.Errorf("unsupported assembler '%s'", name)
	}
}
