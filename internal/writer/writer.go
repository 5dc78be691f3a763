// Package writer implements common assembly file writing functionality.
package writer

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/retroenv/psgtracker/internal/compiler"
)

const dataBytesPerLine = 16

type lineWriterFunc func(line string, byteCount int) error

// AssemblerWriter defines a shared interface used by the different assembler compatibility packages.
// Their constructors need to return this shared interface, having them return the actual type instead of
// the interface results in compiler errors for the constructor variable that they are assigned to.
type AssemblerWriter interface {
	Write() error
}

// Writer implements common assembly file writing functionality.
type Writer struct {
	writer  io.Writer
	options Options

	position int // bytes of music data written
}

// Options of the writer.
type Options struct {
	DirectivePrefix string // nesasm requires a space before a directive
	PadDirective    string // format of a directive that reserves %d zero bytes
	LowByte         string // format of the low byte of a label expression
	HighByte        string // format of the high byte of a label expression
	OffsetComments  bool

	// SegmentSize splits the output into segments of this size, SegmentStart
	// is called with the segment index before the first byte of every segment
	// after the first.
	SegmentSize  int
	SegmentStart func(index int) error
}

// New creates a new writer.
func New(writer io.Writer, options Options) *Writer {
	return &Writer{
		writer:  writer,
		options: options,
	}
}

// WriteCommentHeader writes information about the music data as comments to the output.
func (w *Writer) WriteCommentHeader(title, artist string, result *compiler.Result) error {
	lines := []string{
		fmt.Sprintf("; Title: %s", title),
		fmt.Sprintf("; Artist: %s", artist),
		fmt.Sprintf("; Music data size: %d bytes", result.DataSize),
	}
	if result.BankSwitched {
		lines = append(lines, fmt.Sprintf("; Bank switched, %d banks", result.LastBank))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.writer, line); err != nil {
			return fmt.Errorf("writing comment header: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w.writer); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// WriteChunks writes all chunks with their labels. Chunks of bank switched
// music data are padded to their bank position and references are written
// as resolved values.
func (w *Writer) WriteChunks(result *compiler.Result) error {
	for i, chunk := range result.Chunks {
		if result.BankSwitched {
			position := compiler.Position(chunk, result.DriverSize) - result.DriverSize
			if err := w.pad(position - w.position); err != nil {
				return err
			}
		}

		comment := ""
		if result.BankSwitched && chunk.Type.Switchable() {
			comment = fmt.Sprintf("bank %d", chunk.Bank)
		}
		if err := w.writeLabel(i, chunk.Label, comment); err != nil {
			return err
		}
		if err := w.writeItems(chunk, result.BankSwitched); err != nil {
			return fmt.Errorf("writing chunk '%s': %w", chunk.Label, err)
		}
	}
	return nil
}

func (w *Writer) writeItems(chunk *compiler.Chunk, resolved bool) error {
	var data []byte
	flush := func() error {
		if len(data) == 0 {
			return nil
		}
		err := w.writeData(data)
		data = data[:0]
		return err
	}

	for _, item := range chunk.Items {
		switch item.Kind {
		case compiler.ItemByte, compiler.ItemBankReference:
			data = append(data, byte(item.Value))
			continue
		case compiler.ItemString:
			data = append(data, item.Data...)
			continue
		default:
		}

		if err := flush(); err != nil {
			return err
		}

		var err error
		switch {
		case item.Kind == compiler.ItemWord:
			err = w.writeWord(fmt.Sprintf("$%04X", item.Value), item.Value, "")
		case resolved:
			err = w.writeWord(fmt.Sprintf("$%04X", item.Value), item.Value, item.Label)
		default:
			err = w.writeWord(item.Label, item.Value, "")
		}
		if err != nil {
			return err
		}
	}
	return flush()
}

// writeData writes data bytes, splitting them at segment boundaries.
func (w *Writer) writeData(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if remaining := w.segmentRemaining(); remaining > 0 && remaining < n {
			n = remaining
		}
		if err := w.BundleDataWrites(data[:n], nil); err != nil {
			return err
		}
		if err := w.advance(n); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// writeWord writes a 16 bit word. A word that straddles a segment boundary
// is written as two bytes.
func (w *Writer) writeWord(expression string, value uint16, comment string) error {
	if w.segmentRemaining() == 1 {
		low, high := fmt.Sprintf("$%02X", byte(value)), fmt.Sprintf("$%02X", byte(value>>8))
		if comment == "" && expression[0] != '$' {
			low, high = fmt.Sprintf(w.options.LowByte, expression), fmt.Sprintf(w.options.HighByte, expression)
		}
		if err := w.writeLine(fmt.Sprintf("%s.byte %s", w.options.DirectivePrefix, low), comment); err != nil {
			return err
		}
		if err := w.advance(1); err != nil {
			return err
		}
		if err := w.writeLine(fmt.Sprintf("%s.byte %s", w.options.DirectivePrefix, high), comment); err != nil {
			return err
		}
		return w.advance(1)
	}

	if err := w.writeLine(fmt.Sprintf("%s.word %s", w.options.DirectivePrefix, expression), comment); err != nil {
		return err
	}
	return w.advance(2)
}

// segmentRemaining returns the number of bytes left in the current segment
// or 0 if the output is not split into segments.
func (w *Writer) segmentRemaining() int {
	if w.options.SegmentSize == 0 {
		return 0
	}
	return w.options.SegmentSize - w.position%w.options.SegmentSize
}

// advance moves the output position and starts a new segment at a boundary.
func (w *Writer) advance(n int) error {
	w.position += n
	if w.options.SegmentSize == 0 || w.position%w.options.SegmentSize != 0 || w.options.SegmentStart == nil {
		return nil
	}
	if err := w.options.SegmentStart(w.position / w.options.SegmentSize); err != nil {
		return fmt.Errorf("starting segment: %w", err)
	}
	return nil
}

func (w *Writer) pad(count int) error {
	for count > 0 {
		n := count
		if remaining := w.segmentRemaining(); remaining > 0 && remaining < n {
			n = remaining
		}
		line := w.options.DirectivePrefix + fmt.Sprintf(w.options.PadDirective, n)
		if err := w.writeLine(line, ""); err != nil {
			return err
		}
		if err := w.advance(n); err != nil {
			return err
		}
		count -= n
	}
	return nil
}

// BundleDataWrites bundles writes of data bytes to print dataBytesPerLine bytes per line.
func (w *Writer) BundleDataWrites(data []byte, lineWriter lineWriterFunc) error {
	remaining := len(data)
	for i := 0; remaining > 0; {
		toWrite := min(remaining, dataBytesPerLine)

		buf := &strings.Builder{}
		if _, err := fmt.Fprintf(buf, "%s.byte ", w.options.DirectivePrefix); err != nil {
			return fmt.Errorf("writing data prefix: %w", err)
		}

		for j := range toWrite {
			if _, err := fmt.Fprintf(buf, "$%02x, ", data[i+j]); err != nil {
				return fmt.Errorf("writing data byte: %w", err)
			}
		}

		line := strings.TrimRight(buf.String(), ", ")

		if lineWriter != nil {
			if err := lineWriter(line, toWrite); err != nil {
				return fmt.Errorf("writing data line using custom writer: %w", err)
			}
		} else {
			comment := ""
			if w.options.OffsetComments {
				comment = fmt.Sprintf("$%04X", w.position+i)
			}
			if err := w.writeLine(line, comment); err != nil {
				return fmt.Errorf("writing data line: %w", err)
			}
		}

		i += toWrite
		remaining -= toWrite
	}

	return nil
}

// OutputAliasMap outputs an alias map of constants.
func (w *Writer) OutputAliasMap(aliases map[string]uint16) error {
	if len(aliases) == 0 {
		return nil
	}

	// sort the aliases by name before outputting to avoid random map order
	names := make([]string, 0, len(aliases))
	for constant := range aliases {
		names = append(names, constant)
	}
	slices.Sort(names)

	for _, constant := range names {
		address := aliases[constant]
		if _, err := fmt.Fprintf(w.writer, "%s = $%04X\n", constant, address); err != nil {
			return fmt.Errorf("writing alias: %w", err)
		}
	}

	if _, err := fmt.Fprintln(w.writer); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

func (w *Writer) writeLabel(index int, label, comment string) error {
	if index > 0 {
		if _, err := fmt.Fprintln(w.writer); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}

	if comment == "" {
		if _, err := fmt.Fprintf(w.writer, "%s:\n", label); err != nil {
			return fmt.Errorf("writing label: %w", err)
		}
	} else {
		if _, err := fmt.Fprintf(w.writer, "%-32s ; %s\n", label+":", comment); err != nil {
			return fmt.Errorf("writing label: %w", err)
		}
	}
	return nil
}

func (w *Writer) writeLine(line, comment string) error {
	var err error
	if comment == "" {
		_, err = fmt.Fprintf(w.writer, "%s\n", line)
	} else {
		_, err = fmt.Fprintf(w.writer, "%-32s ; %s\n", line, comment)
	}
	if err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}
