package nesasm

import (
	"fmt"
	"io"

	"github.com/retroenv/psgtracker/internal/assembler"
	"github.com/retroenv/psgtracker/internal/writer"
)

// BankSize is the size of a nesasm bank, music data is split into banks of
// this size.
const BankSize = 0x2000

// FileWriter writes the assembly file content.
type FileWriter struct {
	info     assembler.Info
	ioWriter io.Writer
	writer   *writer.Writer
}

type segmentWrite struct {
	bank int
}

type customWrite func() error

// New creates a new file writer.
// nolint: ireturn
func New(info assembler.Info, ioWriter io.Writer) writer.AssemblerWriter {
	f := FileWriter{
		info:     info,
		ioWriter: ioWriter,
	}
	opts := writer.Options{
		DirectivePrefix: " ",
		PadDirective:    ".ds %d",
		LowByte:         "LOW(%s)",
		HighByte:        "HIGH(%s)",
		SegmentSize:     BankSize,
		SegmentStart:    f.writeSegment,
	}
	f.writer = writer.New(ioWriter, opts)
	return f
}

// Write writes the assembly file content including header and music data.
func (f FileWriter) Write() error {
	writes := []any{
		customWrite(f.writeHeader),
		customWrite(f.writeConstants),
		segmentWrite{bank: 0},
		customWrite(f.writeData),
	}

	for _, write := range writes {
		switch t := write.(type) {
		case segmentWrite:
			if err := f.writeSegment(t.bank); err != nil {
				return err
			}

		case customWrite:
			if err := t(); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeSegment writes a bank header to the output.
func (f FileWriter) writeSegment(bank int) error {
	address := (int(f.info.Result.BaseAddress) + bank*BankSize) & 0xFFFF
	if _, err := fmt.Fprintf(f.ioWriter, "\n .bank %d\n .org $%04x\n\n", bank, address); err != nil {
		return fmt.Errorf("writing segment: %w", err)
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
