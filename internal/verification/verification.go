// Package verification verifies that generated output files recreate the
// compiled music data.
package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/psgtracker/internal/assembler"
	"github.com/retroenv/psgtracker/internal/assembler/asm6"
	"github.com/retroenv/psgtracker/internal/assembler/ca65"
	"github.com/retroenv/psgtracker/internal/assembler/nesasm"
	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/retroenv/psgtracker/internal/render"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/log"
)

// maxLoggedMismatches limits the number of logged differing offsets.
const maxLoggedMismatches = 10

// VerifyOutput verifies that assembling the output file recreates the exact
// binary music data of the compile result.
func VerifyOutput(ctx context.Context, logger *log.Logger, opts options.Program, result *compiler.Result) error {
	if opts.Output == "" {
		return errors.New("can not verify console output")
	}

	filePart := filepath.Ext(opts.Output)
	var (
		err        error
		outputFile *os.File
	)

	if opts.Debug {
		outputFile, err = os.Create("debug.bin")
		if err != nil {
			return fmt.Errorf("creating file 'debug.bin': %w", err)
		}
		defer func() {
			_ = outputFile.Close()
		}()
	} else {
		outputFile, err = os.CreateTemp("", filePart+".*.bin")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		defer func() {
			_ = outputFile.Close()
			_ = os.Remove(outputFile.Name())
		}()
	}

	expected := ExpectedData(result)
	if err := assembleFile(ctx, opts, len(expected), result, filePart, outputFile.Name()); err != nil {
		return err
	}

	assembled, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return fmt.Errorf("reading assembled file for comparison: %w", err)
	}

	if opts.Assembler == assembler.Nesasm {
		assembled, err = trimPadding(assembled, len(expected))
		if err != nil {
			return err
		}
	}

	if err := checkBufferEqual(logger, expected, assembled); err != nil {
		return fmt.Errorf("music data mismatch: %w", err)
	}
	return nil
}

// ExpectedData returns the binary music data that the assembly output of
// the result has to recreate.
func ExpectedData(result *compiler.Result) []byte {
	if result.BankSwitched {
		return render.Banked(result)
	}
	return render.Binary(result.Chunks)
}

// VerifyROM verifies that the iNES file carries the given program data
// without character data and with mapper 0.
func VerifyROM(logger *log.Logger, prg, rom []byte) error {
	cart, err := cartridge.LoadFile(bytes.NewReader(rom))
	if err != nil {
		return fmt.Errorf("loading cartridge file: %w", err)
	}

	if err := checkBufferEqual(logger, prg, cart.PRG); err != nil {
		return fmt.Errorf("segment PRG mismatch: %w", err)
	}
	if len(cart.CHR) != 0 {
		return fmt.Errorf("unexpected CHR segment of %d bytes", len(cart.CHR))
	}
	if len(cart.Trainer) != 0 {
		return fmt.Errorf("unexpected trainer of %d bytes", len(cart.Trainer))
	}
	if cart.Mapper != 0 {
		return fmt.Errorf("mapper mismatch, expected 0 but got %d", cart.Mapper)
	}
	return nil
}

func assembleFile(ctx context.Context, opts options.Program, size int, result *compiler.Result,
	filePart, outputFile string) error {

	switch opts.Assembler {
	case assembler.Asm6:
		if err := asm6.AssembleUsingExternalApp(ctx, opts.Output, outputFile); err != nil {
			return fmt.Errorf("reassembling music data using asm6 failed: %w", err)
		}

	case assembler.Ca65:
		objectFile, err := os.CreateTemp("", filePart+".*.o")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		defer func() {
			_ = objectFile.Close()
			_ = os.Remove(objectFile.Name())
		}()

		ca65Config := ca65.Config{
			BaseAddress: result.BaseAddress,
			Size:        size,
		}

		if err = ca65.AssembleUsingExternalApp(ctx, opts.Output, objectFile.Name(), outputFile, ca65Config); err != nil {
			return fmt.Errorf("reassembling music data using ca65 failed: %w", err)
		}

	case assembler.Nesasm:
		if err := nesasm.AssembleUsingExternalApp(ctx, opts.Output, outputFile); err != nil {
			return fmt.Errorf("reassembling music data using nesasm failed: %w", err)
		}

	default:
		return fmt.Errorf("unsupported assembler '%s'", opts.Assembler)
	}

	return nil
}

// trimPadding removes the zero padding that nesasm adds to fill the last bank.
func trimPadding(data []byte, size int) ([]byte, error) {
	if len(data) < size {
		return data, nil
	}
	for i, b := range data[size:] {
		if b != 0 {
			return nil, fmt.Errorf("unexpected data $%02x at offset $%04x after music data", b, size+i)
		}
	}
	return data[:size], nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs < maxLoggedMismatches {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}
