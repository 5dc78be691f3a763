// Package ca65 provides helpers to create ca65 assembler compatible asm output.
package ca65

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const (
	assemblerName = "ca65"
	linkerName    = "ld65"
)

// AssembleUsingExternalApp calls the external assembler and linker to generate a
// binary of the music data from the given asm file.
func AssembleUsingExternalApp(ctx context.Context, asmFile, objectFile, outputFile string, conf Config) error {
	assembler := assemblerName
	linker := linkerName
	if runtime.GOOS == "windows" {
		assembler += ".exe"
		linker += ".exe"
	}

	if _, err := exec.LookPath(assembler); err != nil {
		return fmt.Errorf("%s is not installed", assembler)
	}
	if _, err := exec.LookPath(linker); err != nil {
		return fmt.Errorf("%s is not installed", linker)
	}

	cmd := exec.CommandContext(ctx, assembler, asmFile, "-o", objectFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assembling file: %s: %w", strings.TrimSpace(string(out)), err)
	}

	configFile, err := os.CreateTemp("", "music"+".*.cfg")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = configFile.Close()
		_ = os.Remove(configFile.Name())
	}()

	linkerConfig, err := GenerateMusicConfig(conf)
	if err != nil {
		return fmt.Errorf("generating ld65 config: %w", err)
	}

	if err := os.WriteFile(configFile.Name(), []byte(linkerConfig), 0666); err != nil {
		return fmt.Errorf("writing linker config: %w", err)
	}

	cmd = exec.CommandContext(ctx, linker, "-C", configFile.Name(), "-o", outputFile, objectFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("linking file: %s: %w", string(out), err)
	}

	return nil
}
