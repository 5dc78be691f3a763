// Package nesasm provides helpers to create nesasm assembler compatible asm output.
package nesasm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const assemblerName = "nesasm"

// AssembleUsingExternalApp calls the external assembler to generate a binary of the
// music data from the given asm file. The output is padded to full banks.
func AssembleUsingExternalApp(ctx context.Context, asmFile, outputFile string) error {
	if _, err := exec.LookPath(assemblerName); err != nil {
		return fmt.Errorf("%s is not installed", assemblerName)
	}

	cmd := exec.CommandContext(ctx, assemblerName, "-raw", "-o", outputFile, asmFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assembling file: %s: %w", strings.TrimSpace(string(out)), err)
	}

	return nil
}
