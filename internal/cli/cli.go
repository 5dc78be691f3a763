// Package cli handles command line interface logic
package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/retroenv/psgtracker/internal/assembler"
	"github.com/retroenv/psgtracker/internal/nsf"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/spf13/pflag"
)

var formats = []string{options.FormatNSF, options.FormatNES, options.FormatBIN, options.FormatASM}

// ParseFlags parses command line flags and returns the program options
func ParseFlags() (options.Program, error) {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.Usage = func() {}
	opts := options.New()
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if errors.Is(err, pflag.ErrHelp) {
		return opts, &UsageError{flags: flags}
	}
	if err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	if len(args) == 0 && opts.Input == "" && opts.Batch == "" {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(flags, args); err != nil {
		return opts, err
	}
	if len(args) == 1 {
		opts.Input = args[0]
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, err
	}
	if err := validateOptionCombinations(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *pflag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the usage and all flag defaults.
func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Printf("%s\n\n", e.msg)
	}
	fmt.Printf("usage: psgtracker [options] <script.lua>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks that at most one script file is passed.
func validateArgs(flags *pflag.FlagSet, args []string) error {
	if len(args) > 1 {
		return &UsageError{
			flags: flags,
			msg:   fmt.Sprintf("Only one script file can be processed, found %d. Use --batch to process multiple files", len(args)),
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Normalize()

	if err := assembler.Validate(opts.Assembler); err != nil {
		return err
	}
	if !slices.Contains(formats, opts.Format) {
		return fmt.Errorf("unsupported format: %s. Valid options: nsf, nes, bin, asm", opts.Format)
	}
	if _, err := nsf.ParseRegion(opts.Machine); err != nil {
		return err
	}
	if opts.Stereo < 0 || opts.Stereo > 100 {
		return fmt.Errorf("stereo separation %d is outside of 0 to 100", opts.Stereo)
	}
	if opts.Volume < 0 {
		return fmt.Errorf("negative volume %d", opts.Volume)
	}
	return nil
}

// validateOptionCombinations checks for incompatible option combinations.
func validateOptionCombinations(opts options.Program) error {
	if opts.AssembleTest && opts.Format != options.FormatASM && opts.Format != options.FormatNES {
		return fmt.Errorf("--verify is only supported for asm and nes output, not %s", opts.Format)
	}
	if opts.Batch != "" && (opts.WAV != "" || opts.VGM != "" || opts.Play) {
		return errors.New("audio outputs can not be used with --batch")
	}
	return nil
}

func readOptionFlags(flags *pflag.FlagSet, opts *options.Program) {
	flags.StringVarP(&opts.Input, "input", "i", "", "name of the input script file")
	flags.StringVarP(&opts.Output, "output", "o", "", "name of the output file, defaults to the input name with the format extension")
	flags.StringVarP(&opts.Format, "format", "f", opts.Format, "output format of compiled songs (nsf/nes/bin/asm)")
	flags.StringVarP(&opts.Assembler, "assembler", "a", opts.Assembler, "Assembler compatibility of the generated .asm file (asm6/ca65/nesasm)")
	flags.StringVarP(&opts.Machine, "machine", "m", opts.Machine, "machine to play on (ntsc/pal/dual)")
	flags.StringVar(&opts.WAV, "wav", "", "render register scripts to a .wav file")
	flags.StringVar(&opts.VGM, "vgm", "", "log the register writes of register scripts to a .vgm or .vgz file")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically output file naming, for example *.lua")
	flags.BoolVar(&opts.Play, "play", false, "play register scripts on the default audio device")
	flags.BoolVar(&opts.LocalPatterns, "local-patterns", false, "only remove duplicate patterns within a track")
	flags.BoolVar(&opts.AssembleTest, "verify", false, "verify the generated asm or nes output by assembling or parsing it and comparing it to the music data")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "perform operations quietly")

	flags.IntVar(&opts.SampleRate, "rate", opts.SampleRate, "output sample rate of rendered audio")
	flags.IntVar(&opts.Stereo, "stereo", opts.Stereo, "stereo separation in percent, 0 renders mono")
	flags.IntVar(&opts.Volume, "volume", opts.Volume, "output volume in percent")
	flags.IntVar(&opts.LowCut, "low-cut", opts.LowCut, "low cut filter frequency in Hz")
	flags.IntVar(&opts.HighCut, "high-cut", opts.HighCut, "high cut filter frequency in Hz")
	flags.IntVar(&opts.HighDamp, "high-damp", opts.HighDamp, "high frequency damping in dB")
}
