package asm6

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// asm6f is preferred, the original asm6 accepts the same music data sources.
var assemblerNames = []string{"asm6f", "asm6"}

var errNotInstalled = errors.New("asm6f or asm6 is not installed")

// AssembleUsingExternalApp assembles the music data source in asmFile into the
// raw binary outputFile. An empty binary is an error, as the music data always
// contains at least the header.
func AssembleUsingExternalApp(ctx context.Context, asmFile, outputFile string) error {
	assembler, err := findAssembler()
	if err != nil {
		return err
	}

	// -q suppresses the per pass progress output of the assembler
	cmd := exec.CommandContext(ctx, assembler, "-q", asmFile, outputFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assembling file with %s: %s: %w", assembler, strings.TrimSpace(string(out)), err)
	}

	info, err := os.Stat(outputFile)
	if err != nil {
		return fmt.Errorf("reading assembled music data: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s produced no music data for %s", assembler, asmFile)
	}
	return nil
}

func findAssembler() (string, error) {
	for _, name := range assemblerNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errNotInstalled
}
