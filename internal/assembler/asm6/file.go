// Package asm6 provides helpers to create asm6 assembler compatible asm output.
package asm6

import (
	"fmt"
	"io"

	"github.com/retroenv/psgtracker/internal/assembler"
	"github.com/retroenv/psgtracker/internal/writer"
)

// FileWriter writes the assembly file content.
type FileWriter struct {
	info       assembler.Info
	mainWriter io.Writer
	writer     *writer.Writer
}

type segmentWrite struct {
	address uint16
}

type customWrite func() error

// New creates a new file writer.
// nolint: ireturn
func New(info assembler.Info, mainWriter io.Writer) writer.AssemblerWriter {
	opts := writer.Options{
		PadDirective: ".dsb %d, $00",
		LowByte:      "<%s",
		HighByte:     ">%s",
	}
	return FileWriter{
		info:       info,
		mainWriter: mainWriter,
		writer:     writer.New(mainWriter, opts),
	}
}

// Write writes the assembly file content including header and music data.
func (f FileWriter) Write() error {
	writes := []any{
		customWrite(f.writeHeader),
		customWrite(f.writeConstants),
		segmentWrite{address: f.info.Result.BaseAddress},
		customWrite(f.writeData),
	}

	for _, write := range writes {
		switch t := write.(type) {
		case segmentWrite:
			if _, err := fmt.Fprintf(f.mainWriter, ".base $%04x\n\n", t.address); err != nil {
				return fmt.Errorf("writing segment: %w", err)
			}

		case customWrite:
			if err := t(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f FileWriter) writeHeader() error {
	return f.writer.WriteCommentHeader(f.info.Title, f.info.Artist, f.info.Result)
}

// writeConstants writes constant aliases to the output.
func (f FileWriter) writeConstants() error {
	if err := f.writer.OutputAliasMap(f.info.Aliases()); err != nil {
		return fmt.Errorf("writing constants output alias map: %w", err)
	}
	return nil
}

func (f FileWriter) writeData() error {
	if err := f.writer.WriteChunks(f.info.Result); err != nil {
		return fmt.Errorf("writing music data: %w", err)
	}
	return nil
}
