package ca65

import (
	"fmt"
	"strings"
)

const (
	memoryConfig = `
MEMORY {
    %-12s start = $%04X,  size = $%05X,  type = ro, file = %%O, fill = no;
}
`

	segmentsConfig = `
SEGMENTS {
    %-12s load = %s, type = ro;
}
`
)

// Config holds the music data building configuration.
type Config struct {
	BaseAddress uint16
	Size        int
}

// GenerateMusicConfig generates a ld65 linker config that places the music
// segment at the base address of the music data.
func GenerateMusicConfig(conf Config) (string, error) {
	buf := &strings.Builder{}
	if _, err := fmt.Fprintf(buf, memoryConfig, Segment+":", conf.BaseAddress, max(conf.Size, 1)); err != nil {
		return "", fmt.Errorf("writing memory config: %w", err)
	}
	if _, err := fmt.Fprintf(buf, segmentsConfig, Segment+":", Segment); err != nil {
		return "", fmt.Errorf("writing segments config: %w", err)
	}
	return buf.String(), nil
}
