// Package script runs Lua scripts that either describe a song document or
// drive the sound chip registers directly.
package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/retroenv/psgtracker/internal/psg"
	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/retrogolib/log"
	lua "github.com/yuin/gopher-lua"
)

// Kind is the kind of a script.
type Kind int

// Script kinds.
const (
	KindEmpty     Kind = iota
	KindSong           // defines a global song table
	KindRegisters      // calls the register functions
)

func (k Kind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindRegisters:
		return "registers"
	default:
		return "empty"
	}
}

// ErrInvalidScript is returned for a script whose tables can not be converted.
var ErrInvalidScript = errors.New("invalid script")

// Registers is the target of the register functions. It is implemented by
// the audio pump.
type Registers interface {
	Write(address uint16, value uint8)
	WriteRaw(b uint8)
	AddTime(cycles int32)
	Process()
	FrameCycles() uint32
}

// Options configures a script run.
type Options struct {
	Registers Registers // nil disables the register functions
	OnLoop    func()    // called by loop()
}

// Result is the outcome of a script run.
type Result struct {
	Kind     Kind
	Document *song.Document // set for song scripts
	Driver   *DriverSpec    // optional driver description of song scripts
	Writes   int            // number of register writes
	Cycles   uint64         // chip cycles advanced by the script
}

// Runner executes scripts.
type Runner struct {
	logger  *log.Logger
	options Options
	result  *Result
}

// New returns a script runner.
func New(logger *log.Logger, options Options) *Runner {
	return &Runner{
		logger:  logger,
		options: options,
	}
}

// Run executes the script source. The context cancels a running script.
func (r *Runner) Run(ctx context.Context, name, source string) (*Result, error) {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	r.result = &Result{}
	r.registerFunctions(L)

	if err := L.DoString(source); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("running script '%s': %w", name, err)
	}

	if r.result.Writes > 0 || r.result.Cycles > 0 {
		r.result.Kind = KindRegisters
	}

	if tbl, ok := L.GetGlobal("song").(*lua.LTable); ok {
		doc, err := convertDocument(tbl)
		if err != nil {
			return nil, fmt.Errorf("converting song of script '%s': %w", name, err)
		}
		r.result.Kind = KindSong
		r.result.Document = doc
	}

	if tbl, ok := L.GetGlobal("driver").(*lua.LTable); ok {
		spec, err := convertDriver(tbl)
		if err != nil {
			return nil, fmt.Errorf("converting driver of script '%s': %w", name, err)
		}
		r.result.Driver = spec
	}

	r.logger.Debug("Script executed",
		log.String("name", name),
		log.Stringer("kind", r.result.Kind),
		log.Int("writes", r.result.Writes))
	return r.result, nil
}

func (r *Runner) registerFunctions(L *lua.LState) {
	functions := map[string]lua.LGFunction{
		"write":  r.luaWrite,
		"byte":   r.luaByte,
		"wait":   r.luaWait,
		"frames": r.luaFrames,
		"tone":   r.luaTone,
		"volume": r.luaVolume,
		"noise":  r.luaNoise,
		"stereo": r.luaStereo,
		"loop":   r.luaLoop,
	}
	for name, fn := range functions {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func (r *Runner) registers(L *lua.LState) Registers {
	if r.options.Registers == nil {
		L.RaiseError("register functions are not available")
	}
	return r.options.Registers
}

func (r *Runner) write(L *lua.LState, address uint16, value uint8) {
	r.registers(L).Write(address, value)
	r.result.Writes++
}

func (r *Runner) luaWrite(L *lua.LState) int {
	address := L.CheckInt(1)
	value := L.CheckInt(2)
	r.write(L, uint16(address), uint8(value))
	return 0
}

func (r *Runner) luaByte(L *lua.LState) int {
	value := L.CheckInt(1)
	r.registers(L).WriteRaw(uint8(value))
	r.result.Writes++
	return 0
}

func (r *Runner) luaWait(L *lua.LState) int {
	cycles := L.CheckInt(1)
	if cycles < 0 {
		L.ArgError(1, "negative cycle count")
	}
	r.advance(L, uint64(cycles))
	return 0
}

func (r *Runner) luaFrames(L *lua.LState) int {
	frames := L.CheckInt(1)
	if frames < 0 {
		L.ArgError(1, "negative frame count")
	}
	regs := r.registers(L)
	for range frames {
		r.advance(L, uint64(regs.FrameCycles()))
	}
	return 0
}

func (r *Runner) advance(L *lua.LState, cycles uint64) {
	regs := r.registers(L)
	for cycles > 0 {
		step := min(cycles, 1<<30)
		regs.AddTime(int32(step))
		regs.Process()
		cycles -= step
		r.result.Cycles += step
	}
}

func (r *Runner) luaTone(L *lua.LState) int {
	channel := checkChannel(L, 1, int(psg.Square3))
	period := L.CheckInt(2)
	if period < 0 || period > 0x3FF {
		L.ArgError(2, "period out of range")
	}
	r.write(L, uint16(channel*2), uint8(period&0x0F))
	r.write(L, psg.PeriodHighPort, uint8(period>>4))
	return 0
}

func (r *Runner) luaVolume(L *lua.LState) int {
	channel := checkChannel(L, 1, int(psg.Noise1))
	volume := L.CheckInt(2)
	if volume < 0 || volume > 15 {
		L.ArgError(2, "volume out of range")
	}

	attenuation := uint8(15 - volume)
	if channel == int(psg.Noise1) {
		r.write(L, psg.NoiseAttenuationPort, attenuation)
	} else {
		r.write(L, uint16(channel*2+1), attenuation)
	}
	return 0
}

func (r *Runner) luaNoise(L *lua.LState) int {
	mode := L.CheckInt(1)
	if mode < 0 || mode > 3 {
		L.ArgError(1, "noise mode out of range")
	}
	value := uint8(mode)
	if L.OptBool(2, false) {
		value |= 0x04
	}
	r.write(L, psg.NoiseControlPort, value)
	return 0
}

func (r *Runner) luaStereo(L *lua.LState) int {
	mask := L.CheckInt(1)
	r.write(L, psg.StereoPort, uint8(mask))
	return 0
}

func (r *Runner) luaLoop(L *lua.LState) int {
	r.registers(L).Process()
	if r.options.OnLoop != nil {
		r.options.OnLoop()
	}
	return 0
}

func checkChannel(L *lua.LState, n, maxChannel int) int {
	channel := L.CheckInt(n)
	if channel < 0 || channel > maxChannel {
		L.ArgError(n, fmt.Sprintf("channel out of range 0 to %d", maxChannel))
	}
	return channel
}
