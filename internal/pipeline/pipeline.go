// Package pipeline orchestrates the script processing workflow stages.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/retroenv/psgtracker/internal/apu"
	"github.com/retroenv/psgtracker/internal/assembler"
	"github.com/retroenv/psgtracker/internal/assembler/asm6"
	"github.com/retroenv/psgtracker/internal/assembler/ca65"
	"github.com/retroenv/psgtracker/internal/assembler/nesasm"
	"github.com/retroenv/psgtracker/internal/audio"
	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/psgtracker/internal/loader"
	"github.com/retroenv/psgtracker/internal/nsf"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/retroenv/psgtracker/internal/render"
	"github.com/retroenv/psgtracker/internal/script"
	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/psgtracker/internal/verification"
	"github.com/retroenv/psgtracker/internal/vgm"
	"github.com/retroenv/psgtracker/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

var errEmptyScript = errors.New("script defines no song and writes no registers")

// Result contains the in-memory outputs of a processed script. Nothing is
// written to disk by the pipeline.
type Result struct {
	Kind script.Kind

	Data     []byte           // compiled song in the output format
	PRG      []byte           // program image of NES exports
	Compiled *compiler.Result // music data of assembly exports

	Samples []int16     // rendered audio, set when a WAV output is requested
	VGM     *vgm.Logger // register log, set when a VGM output is requested
	Cycles  uint64
}

// Pipeline orchestrates the complete script workflow.
type Pipeline struct {
	logger *log.Logger
	loader *loader.Loader
}

// New creates a new script pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger: logger,
		loader: loader.New(),
	}
}

// Execute loads the input script and processes it.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program) (*Result, error) {
	source, err := p.loader.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("loading script: %w", err)
	}
	return p.ExecuteScript(ctx, opts, opts.Input, source)
}

// ExecuteScript processes a script that is already in memory. The name is
// used to resolve relative driver files.
func (p *Pipeline) ExecuteScript(ctx context.Context, opts options.Program, name, source string) (*Result, error) {
	p.printInfo(opts, name)

	out, err := p.newRenderer(opts, name)
	if err != nil {
		return nil, fmt.Errorf("setting up audio: %w", err)
	}

	runner := script.New(p.logger, script.Options{
		Registers: out.apu,
		OnLoop:    out.loop,
	})
	res, runErr := runner.Run(ctx, name, source)
	closeErr := out.close()
	if runErr != nil {
		return nil, fmt.Errorf("running script: %w", runErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing audio player: %w", closeErr)
	}

	switch res.Kind {
	case script.KindSong:
		return p.compile(opts, name, res)

	case script.KindRegisters:
		result := &Result{
			Kind:   res.Kind,
			VGM:    out.vgm,
			Cycles: res.Cycles,
		}
		if out.recorder != nil {
			result.Samples = out.recorder.Samples()
		}
		p.logger.Info("Rendered register script",
			log.Int("writes", res.Writes),
			log.Int("frames", int(res.Cycles/uint64(out.apu.FrameCycles()))))
		return result, nil

	default:
		return nil, errEmptyScript
	}
}

// compile exports the song document of a script in the output format.
func (p *Pipeline) compile(opts options.Program, name string, res *script.Result) (*Result, error) {
	drv, err := p.loader.LoadDriver(name, res.Driver)
	if err != nil {
		return nil, fmt.Errorf("loading driver: %w", err)
	}

	doc := res.Document
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating song: %w", err)
	}

	exporter := render.NewExporter(p.logger, drv, opts.Compiler())
	result := &Result{Kind: res.Kind}

	switch opts.Format {
	case options.FormatNSF:
		region, err := nsf.ParseRegion(opts.Machine)
		if err != nil {
			return nil, err
		}
		result.Data, err = exporter.NSF(doc, region)
		if err != nil {
			return nil, fmt.Errorf("exporting nsf: %w", err)
		}

	case options.FormatNES:
		result.PRG, err = exporter.PRG(doc)
		if err != nil {
			return nil, fmt.Errorf("exporting nes: %w", err)
		}
		result.Data = render.NESImage(result.PRG)

	case options.FormatBIN:
		result.Data, err = exporter.BIN(doc)
		if err != nil {
			return nil, fmt.Errorf("exporting bin: %w", err)
		}

	case options.FormatASM:
		result.Compiled, err = exporter.Compile(doc, true)
		if err != nil {
			return nil, fmt.Errorf("exporting asm: %w", err)
		}
		buf := &bytes.Buffer{}
		if err := p.writeAssembly(opts.Assembler, doc, result.Compiled, buf); err != nil {
			return nil, fmt.Errorf("exporting asm: %w", err)
		}
		result.Data = buf.Bytes()

	default:
		return nil, fmt.Errorf("unsupported output format '%s'", opts.Format)
	}

	return result, nil
}

// Verify checks the written output of a compiled song. Assembly files are
// assembled with the external assembler and compared to the binary music
// data, NES images are parsed back and checked.
func (p *Pipeline) Verify(ctx context.Context, opts options.Program, result *Result) error {
	switch opts.Format {
	case options.FormatASM:
		return verification.VerifyOutput(ctx, p.logger, opts, result.Compiled)
	case options.FormatNES:
		return verification.VerifyROM(p.logger, result.PRG, result.Data)
	default:
		p.logger.Warn("Verification is only supported for asm and nes output", log.String("format", opts.Format))
		return nil
	}
}

// writeAssembly writes the music data in the dialect of the assembler.
func (p *Pipeline) writeAssembly(assemblerName string, doc *song.Document,
	compiled *compiler.Result, w io.Writer) error {

	info := assembler.Info{
		Title:  doc.Title,
		Artist: doc.Artist,
		Result: compiled,
	}

	var fileWriter writer.AssemblerWriter
	switch assemblerName {
	case assembler.Asm6:
		fileWriter = asm6.New(info, w)
	case assembler.Ca65:
		fileWriter = ca65.New(info, w)
	case assembler.Nesasm:
		fileWriter = nesasm.New(info, w)
	default:
		return fmt.Errorf("unsupported assembler '%s'", assemblerName)
	}
	return fileWriter.Write()
}

// printInfo prints information about the script being processed.
func (p *Pipeline) printInfo(opts options.Program, name string) {
	if opts.Quiet {
		return
	}
	p.logger.Info("Processing script",
		log.String("file", name),
		log.String("format", opts.Format),
		log.String("machine", opts.Machine),
	)
}

// renderer bundles the audio pump with the outputs of register scripts.
type renderer struct {
	apu      *apu.APU
	recorder *audio.Recorder
	player   *audio.Player
	vgm      *vgm.Logger
}

func (p *Pipeline) newRenderer(opts options.Program, name string) (*renderer, error) {
	machine := apu.NTSC
	if opts.Machine == "pal" {
		machine = apu.PAL
	}

	r := &renderer{}
	var sinks audio.Sinks
	if opts.WAV != "" {
		r.recorder = &audio.Recorder{}
		sinks = append(sinks, r.recorder)
	}
	if opts.Play {
		player, err := audio.NewPlayer(p.logger, opts.SampleRate, opts.Channels())
		if err != nil {
			return nil, err
		}
		r.player = player
		sinks = append(sinks, player)
	}

	r.apu = apu.New(p.logger, sinks)
	if err := r.apu.SetupSound(opts.SampleRate, opts.Channels(), machine); err != nil {
		_ = r.close()
		return nil, err
	}
	r.apu.SetupMixer(opts.LowCut, opts.HighCut, opts.HighDamp, opts.Volume)
	if opts.Stereo > 0 {
		r.apu.SetStereoSeparation(opts.Stereo)
	}

	if opts.VGM != "" {
		r.vgm = vgm.New(p.logger, vgm.GameGear, machine.Clock())
		if err := r.vgm.SetFrequency(int(machine.FrameRate())); err != nil {
			_ = r.close()
			return nil, err
		}
		r.vgm.SetGD3(vgm.GD3{
			Track:     strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
			System:    "Sega Game Gear",
			Converter: "psgtracker",
		})
		r.apu.Chip().SetLogger(r.vgm)
	}
	return r, nil
}

func (r *renderer) loop() {
	if r.vgm != nil {
		r.vgm.Loop()
	}
}

func (r *renderer) close() error {
	if r.player == nil {
		return nil
	}
	return r.player.Close()
}
