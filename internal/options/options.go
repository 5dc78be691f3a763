// Package options contains the program options.
package options

import (
	"strings"

	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/psgtracker/internal/mixer"
)

// Output formats of compiled songs.
const (
	FormatNSF = "nsf"
	FormatNES = "nes"
	FormatBIN = "bin"
	FormatASM = "asm"
)

// Parameters contains file path options.
type Parameters struct {
	Input  string `flag:"i" usage:"input script file"`
	Output string `flag:"o" usage:"output file of the compiled song"`
	WAV    string `flag:"wav" usage:"render the audio to a .wav file"`
	VGM    string `flag:"vgm" usage:"log the register writes to a .vgm or .vgz file"`
	Batch  string `flag:"batch" usage:"batch process files matching pattern (e.g. *.lua)"`
}

// Flags contains behavior options.
type Flags struct {
	Format        string `flag:"f" usage:"output format: nsf, nes, bin, asm" default:"nsf"`
	Assembler     string `flag:"a" usage:"assembler format: asm6, ca65, nesasm" default:"ca65"`
	Machine       string `flag:"m" usage:"machine: ntsc, pal, dual" default:"ntsc"`
	LocalPatterns bool   `flag:"local-patterns" usage:"only remove duplicate patterns within a track"`
	Play          bool   `flag:"play" usage:"play the audio on the default output device"`
	AssembleTest  bool   `flag:"verify" usage:"verify asm output by assembling it and comparing to the binary"`
	Debug         bool   `flag:"debug" usage:"enable debug logging"`
	Quiet         bool   `flag:"q" usage:"quiet mode"`
}

// AudioFlags contains the emulation and output settings of rendered audio.
type AudioFlags struct {
	SampleRate int `flag:"rate" usage:"output sample rate" default:"44100"`
	Stereo     int `flag:"stereo" usage:"stereo separation in percent, 0 renders mono" default:"0"`
	Volume     int `flag:"volume" usage:"output volume in percent" default:"100"`
	LowCut     int `flag:"low-cut" usage:"low cut filter frequency" default:"16"`
	HighCut    int `flag:"high-cut" usage:"high cut filter frequency" default:"12000"`
	HighDamp   int `flag:"high-damp" usage:"high frequency damping in dB" default:"24"`
}

// Program options of the tracker.
type Program struct {
	Parameters
	Flags
	AudioFlags
}

// Channels returns the number of audio output channels.
func (p Program) Channels() int {
	if p.Stereo > 0 {
		return 2
	}
	return 1
}

// Compiler returns the music compiler options for the program options.
func (p Program) Compiler() compiler.Options {
	opts := compiler.Options{
		Scope:      compiler.ScopeModule,
		DumpChunks: p.Debug,
	}
	if p.LocalPatterns {
		opts.Scope = compiler.ScopeTrack
	}
	return opts
}

// New returns program options with default settings.
func New() Program {
	settings := mixer.DefaultSettings()
	return Program{
		Flags: Flags{
			Format:    FormatNSF,
			Assembler: "ca65",
			Machine:   "ntsc",
		},
		AudioFlags: AudioFlags{
			SampleRate: 44100,
			Volume:     int(settings.Volume * 100),
			LowCut:     settings.LowCut,
			HighCut:    settings.HighCut,
			HighDamp:   settings.HighDamp,
		},
	}
}

// Normalize lower cases the name options.
func (p *Program) Normalize() {
	p.Format = strings.ToLower(p.Format)
	p.Assembler = strings.ToLower(p.Assembler)
	p.Machine = strings.ToLower(p.Machine)
	if p.Assembler == "asm6f" {
		p.Assembler = "asm6"
	}
}
