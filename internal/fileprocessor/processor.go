// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/psgtracker/internal/audio"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/retroenv/psgtracker/internal/pipeline"
	"github.com/retroenv/psgtracker/internal/script"
	"github.com/retroenv/retrogolib/log"
)

// ProcessFile handles the complete file processing workflow. Output files
// are only written after the script was processed successfully.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program) error {
	p := pipeline.New(logger)
	result, err := p.Execute(ctx, opts)
	if err != nil {
		return err
	}

	switch result.Kind {
	case script.KindSong:
		if err := writeOutput(opts.Output, result.Data); err != nil {
			return err
		}
		if opts.AssembleTest {
			if err := p.Verify(ctx, opts, result); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			logger.Info("Verification successful")
		}

	case script.KindRegisters:
		if opts.WAV != "" {
			if err := writeWAV(opts.WAV, opts.SampleRate, opts.Channels(), result.Samples); err != nil {
				return err
			}
			logger.Info("Wrote audio", log.String("file", opts.WAV), log.Int("samples", len(result.Samples)))
		}
		if result.VGM != nil {
			if err := result.VGM.WriteFile(opts.VGM); err != nil {
				return fmt.Errorf("writing vgm file %s: %w", opts.VGM, err)
			}
			logger.Info("Wrote register log", log.String("file", opts.VGM))
		}
	}

	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file
// and output format.
func GenerateOutputFilename(inputFile, format string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + "." + format
}

// writeOutput writes the compiled song to the named file, or to the console
// if no name is given.
func writeOutput(name string, data []byte) error {
	if name == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("writing output file %s: %w", name, err)
	}
	return nil
}

func writeWAV(name string, sampleRate, channels int, samples []int16) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating wav file %s: %w", name, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing wav file %s: %w", name, closeErr)
		}
	}()

	wav, err := audio.NewWAVWriter(file, sampleRate, channels)
	if err != nil {
		return fmt.Errorf("creating wav writer: %w", err)
	}
	if err := wav.Write(samples); err != nil {
		return fmt.Errorf("writing wav file %s: %w", name, err)
	}
	if err := wav.Close(); err != nil {
		return fmt.Errorf("finishing wav file %s: %w", name, err)
	}
	return nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("psgtracker", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
