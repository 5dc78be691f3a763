package options

import (
	"testing"

	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/retrogolib/assert"
)

func TestNew(t *testing.T) {
	opts := New()
	assert.Equal(t, FormatNSF, opts.Format)
	assert.Equal(t, "ca65", opts.Assembler)
	assert.Equal(t, "ntsc", opts.Machine)
	assert.Equal(t, AudioFlags{
		SampleRate: 44100,
		Volume:     100,
		LowCut:     16,
		HighCut:    12000,
		HighDamp:   24,
	}, opts.AudioFlags)
}

func TestProgram_Channels(t *testing.T) {
	opts := New()
	assert.Equal(t, 1, opts.Channels())
	opts.Stereo = 1
	assert.Equal(t, 2, opts.Channels())
}

func TestProgram_Compiler(t *testing.T) {
	opts := New()
	assert.Equal(t, compiler.Options{Scope: compiler.ScopeModule}, opts.Compiler())

	opts.LocalPatterns = true
	opts.Debug = true
	assert.Equal(t, compiler.Options{Scope: compiler.ScopeTrack, DumpChunks: true}, opts.Compiler())
}

func TestProgram_Normalize(t *testing.T) {
	opts := Program{Flags: Flags{Format: "NSF", Assembler: "ASM6F", Machine: "Pal"}}
	opts.Normalize()
	assert.Equal(t, FormatNSF, opts.Format)
	assert.Equal(t, "asm6", opts.Assembler)
	assert.Equal(t, "pal", opts.Machine)
}
