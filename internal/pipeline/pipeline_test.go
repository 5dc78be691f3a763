package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/psgtracker/internal/apu"
	"github.com/retroenv/psgtracker/internal/driver"
	"github.com/retroenv/psgtracker/internal/nsf"
	"github.com/retroenv/psgtracker/internal/options"
	"github.com/retroenv/psgtracker/internal/script"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const songScript = `
song = {
  title = "Song",
  author = "Artist",
  sequences = { volume = { [0] = { items = {15, 12, 8} } } },
  instruments = { [0] = { name = "lead", volume = 0 } },
  tracks = {
    {
      rows = 16,
      patterns = { { [0] = { [0] = { note = "C-4", inst = 0 } } } },
    },
  },
}
`

const registerScript = `
tone(0, 0x100)
volume(0, 15)
frames(3)
loop()
frames(1)
`

func TestNew(t *testing.T) {
	p := New(log.NewTestLogger(t))

	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.loader)
}

func TestExecuteScript_Song(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		assembler string
		check     func(t *testing.T, result *Result)
	}{
		{
			name:   "nsf",
			format: options.FormatNSF,
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.Equal(t, "NESM\x1A", string(result.Data[:5]))
			},
		},
		{
			name:   "nes",
			format: options.FormatNES,
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.Equal(t, "NES\x1A", string(result.Data[:4]))
				assert.Len(t, result.PRG, 0x8000)
				assert.Len(t, result.Data, nsf.INESHeaderSize+0x8000)
			},
		},
		{
			name:   "bin",
			format: options.FormatBIN,
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.NotEmpty(t, result.Data)
				assert.Nil(t, result.Compiled)
			},
		},
		{
			name:      "asm ca65",
			format:    options.FormatASM,
			assembler: "ca65",
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.Contains(t, string(result.Data), ".segment \"MUSIC\"")
				assert.NotNil(t, result.Compiled)
			},
		},
		{
			name:      "asm asm6",
			format:    options.FormatASM,
			assembler: "asm6",
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.Contains(t, string(result.Data), "FT_DATA_SIZE = $")
			},
		},
		{
			name:      "asm nesasm",
			format:    options.FormatASM,
			assembler: "nesasm",
			check: func(t *testing.T, result *Result) {
				t.Helper()
				assert.Contains(t, string(result.Data), " .bank 0\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.New()
			opts.Format = tt.format
			if tt.assembler != "" {
				opts.Assembler = tt.assembler
			}

			result, err := New(log.NewTestLogger(t)).ExecuteScript(context.Background(), opts, "song.lua", songScript)
			assert.NoError(t, err)
			assert.Equal(t, script.KindSong, result.Kind)
			tt.check(t, result)
		})
	}
}

func TestExecuteScript_Registers(t *testing.T) {
	opts := options.New()
	opts.WAV = "out.wav"
	opts.VGM = "out.vgm"

	result, err := New(log.NewTestLogger(t)).ExecuteScript(context.Background(), opts, "regs.lua", registerScript)
	assert.NoError(t, err)
	assert.Equal(t, script.KindRegisters, result.Kind)
	assert.Nil(t, result.Data)

	frameCycles := uint64(apu.ClockNTSC / apu.FrameRateNTSC)
	assert.Equal(t, 4*frameCycles, result.Cycles)
	assert.NotEmpty(t, result.Samples)
	assert.NotNil(t, result.VGM)
	assert.True(t, result.VGM.TotalSamples() > 0)
}

func TestExecuteScript_RegistersWithoutOutputs(t *testing.T) {
	result, err := New(log.NewTestLogger(t)).ExecuteScript(context.Background(), options.New(), "regs.lua", registerScript)
	assert.NoError(t, err)
	assert.Nil(t, result.Samples)
	assert.Nil(t, result.VGM)
}

func TestExecuteScript_Errors(t *testing.T) {
	tests := []struct {
		name   string
		opts   func(opts *options.Program)
		source string
		errMsg string
	}{
		{name: "format", opts: func(o *options.Program) { o.Format = "rom" }, source: songScript,
			errMsg: "unsupported output format"},
		{name: "assembler", opts: func(o *options.Program) { o.Format = options.FormatASM; o.Assembler = "x" },
			source: songScript, errMsg: "unsupported assembler"},
		{name: "machine", opts: func(o *options.Program) { o.Machine = "secam" }, source: songScript,
			errMsg: "unsupported machine"},
		{name: "sample rate", opts: func(o *options.Program) { o.SampleRate = 0 }, source: songScript,
			errMsg: "setting up audio"},
		{name: "script", source: "song = ", errMsg: "running script"},
		{name: "driver", source: songScript + `driver = { file = "/nonexistent/driver.bin" }`,
			errMsg: "loading driver"},
		{name: "empty", source: "local x = 1", errMsg: errEmptyScript.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.New()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := New(log.NewTestLogger(t)).ExecuteScript(context.Background(), opts, "test.lua", tt.source)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestExecuteScript_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(log.NewTestLogger(t)).ExecuteScript(ctx, options.New(), "loop.lua", "while true do end")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	stub := driver.Stub()
	driverFile := filepath.Join(dir, "driver.bin")
	assert.NoError(t, os.WriteFile(driverFile, stub.Code, 0600))

	r := stub.Relocs
	source := songScript + fmt.Sprintf(
		`driver = { file = "driver.bin", words = {%d, %d}, bytes = {{%d, "low", %d}, {%d, "high", %d}}, vibrato = %d }`,
		r[0].Offset, r[1].Offset, r[2].Offset, r[2].Value, r[3].Offset, r[3].Value, stub.VibratoOffset)
	scriptFile := filepath.Join(dir, "song.lua")
	assert.NoError(t, os.WriteFile(scriptFile, []byte(source), 0600))

	opts := options.New()
	opts.Input = scriptFile
	opts.Format = options.FormatBIN

	result, err := New(log.NewTestLogger(t)).Execute(context.Background(), opts)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Data)

	opts.Input = filepath.Join(dir, "missing.lua")
	_, err = New(log.NewTestLogger(t)).Execute(context.Background(), opts)
	assert.ErrorContains(t, err, "loading script")
}

func TestVerify(t *testing.T) {
	opts := options.New()
	opts.Format = options.FormatNES

	p := New(log.NewTestLogger(t))
	result, err := p.ExecuteScript(context.Background(), opts, "song.lua", songScript)
	assert.NoError(t, err)
	assert.NoError(t, p.Verify(context.Background(), opts, result))

	opts.Format = options.FormatBIN
	assert.NoError(t, p.Verify(context.Background(), opts, result))

	opts.Format = options.FormatASM
	assert.ErrorContains(t, p.Verify(context.Background(), opts, &Result{}), "can not verify console output")
}
