// Package vgm logs the register writes of the sound chip into the VGM file
// format. The pseudo registers of the emulated chip are converted into the
// byte protocol of the real chip.
package vgm

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/psgtracker/internal/psg"
	"github.com/retroenv/retrogolib/log"
)

// SampleRate is the fixed sample rate of all VGM delays.
const SampleRate = 44100

// DefaultClock is the chip clock written to the header.
const DefaultClock = 3579545

const (
	headerSize = 0x100
	version    = 0x161

	cmdStereo    = 0x4F
	cmdWrite     = 0x50
	cmdWait      = 0x61
	cmdWaitNTSC  = 0x62
	cmdWaitPAL   = 0x63
	cmdEnd       = 0x66
	cmdWaitShort = 0x70
	cmdWaitLong  = 0x7F

	samplesNTSC = SampleRate / 60
	samplesPAL  = SampleRate / 50
)

// Header positions.
const (
	posEOF          = 0x04
	posVersion      = 0x08
	posClock        = 0x0C
	posGD3          = 0x14
	posTotalSamples = 0x18
	posLoop         = 0x1C
	posLoopSamples  = 0x20
	posRate         = 0x24
	posFeedback     = 0x28
	posWidth        = 0x2A
	posFlags        = 0x2B
	posData         = 0x34
)

// Mode selects the noise feedback pattern written to the header.
type Mode int

// Chip variants.
const (
	GameGear Mode = iota
	BBCMicro
	SN76496
)

var (
	errTooLarge     = errors.New("vgm file is too large")
	errBadFrequency = errors.New("bad vgm tick frequency")
)

// Logger collects chip commands and delays. It implements psg.RegisterLogger.
type Logger struct {
	logger *log.Logger
	mode   Mode
	clock  uint32
	rate   uint32

	cycles      uint64 // chip cycles logged so far
	samples     uint64 // samples written as delays so far
	introLength uint64 // samples before the loop point

	intro    []byte
	commands []byte
	gd3      []byte
	looped   bool

	latch    uint8    // square latched by the last period write
	low      [3]uint8 // low period nibbles of the squares
	register uint8    // register latched in the real chip, bits 4 to 6 of a latch byte
}

var _ psg.RegisterLogger = (*Logger)(nil)

// New returns a logger for a chip clocked at the given rate.
func New(logger *log.Logger, mode Mode, clock uint32) *Logger {
	return &Logger{
		logger: logger,
		mode:   mode,
		clock:  clock,
		rate:   60,

		register: 0xFF,
	}
}

// SetFrequency sets the refresh rate written to the header.
func (l *Logger) SetFrequency(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("%w: %d", errBadFrequency, hz)
	}
	l.rate = uint32(hz)
	return nil
}

// SetGD3 sets the GD3 tag of the file.
func (l *Logger) SetGD3(tag GD3) {
	l.gd3 = tag.Bytes()
}

// LogCycles adds elapsed chip cycles.
func (l *Logger) LogCycles(cycles uint32) {
	l.cycles += uint64(cycles)
}

// LogWrite converts a pseudo register write into chip command bytes.
func (l *Logger) LogWrite(address uint16, value uint8) {
	switch address {
	case 0, 2, 4:
		l.latch = uint8(address / 2)
		l.low[l.latch] = value & 0x0F
		l.write(0x80 | l.latch<<5 | value&0x0F)

	case 1, 3, 5:
		l.write(0x90 | uint8(address/2)<<5 | value&0x0F)

	case psg.NoiseControlPort:
		l.write(0xE0 | value&0x07)

	case psg.NoiseAttenuationPort:
		l.write(0xF0 | value&0x0F)

	case psg.StereoPort:
		l.insert(cmdStereo, value)

	default:
		// data bytes go to the register latched last, which can be an
		// attenuation or another square
		if l.register != l.latch<<5 {
			l.write(0x80 | l.latch<<5 | l.low[l.latch])
		}
		l.write(value & 0x3F)
	}
}

// Loop marks the current position as the loop point.
func (l *Logger) Loop() {
	l.flushDelay()
	l.introLength = l.samples

	if l.looped {
		l.intro = append(l.intro, l.commands...)
		l.commands = l.commands[:0]
		return
	}
	l.intro, l.commands = l.commands, l.intro[:0]
	l.looped = true
}

// TotalSamples returns the number of samples logged so far.
func (l *Logger) TotalSamples() uint64 {
	return l.cycles * SampleRate / uint64(l.clock)
}

// Commit writes the complete file.
func (l *Logger) Commit(w io.Writer) error {
	l.flushDelay()

	size := uint64(headerSize + len(l.gd3) + len(l.intro) + len(l.commands) + 1)
	if size > math.MaxUint32 || l.samples > math.MaxUint32 {
		return errTooLarge
	}

	header := l.header(uint32(size))
	for _, data := range [][]byte{header, l.gd3, l.intro, l.commands, {cmdEnd}} {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing vgm data: %w", err)
		}
	}

	l.logger.Debug("VGM written",
		log.Int("bytes", int(size)),
		log.Int("samples", int(l.samples)),
		log.Int("loop_samples", int(l.samples-l.introLength)))
	return nil
}

// WriteFile commits the log to a file, files with a .vgz extension are
// gzip compressed.
func (l *Logger) WriteFile(name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating file '%s': %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file '%s': %w", name, cerr)
		}
	}()

	if !strings.EqualFold(filepath.Ext(name), ".vgz") {
		return l.Commit(f)
	}

	zw := gzip.NewWriter(f)
	if err := l.Commit(zw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing vgm data: %w", err)
	}
	return nil
}

func (l *Logger) header(size uint32) []byte {
	h := make([]byte, headerSize)
	copy(h, "Vgm ")
	le := binary.LittleEndian

	le.PutUint32(h[posEOF:], size-posEOF)
	le.PutUint32(h[posVersion:], version)
	le.PutUint32(h[posClock:], l.clock)
	if len(l.gd3) > 0 {
		le.PutUint32(h[posGD3:], headerSize-posGD3)
	}
	le.PutUint32(h[posTotalSamples:], uint32(l.samples))
	if l.looped {
		le.PutUint32(h[posLoop:], size-uint32(len(l.commands))-1-posLoop)
		le.PutUint32(h[posLoopSamples:], uint32(l.samples-l.introLength))
	}
	le.PutUint32(h[posRate:], l.rate)

	switch l.mode {
	case GameGear:
		le.PutUint16(h[posFeedback:], 0x0009)
		h[posWidth] = 16
	case BBCMicro:
		le.PutUint16(h[posFeedback:], 0x0003)
		h[posWidth] = 16
	case SN76496:
		le.PutUint16(h[posFeedback:], 0x0006)
		h[posWidth] = 15
	}
	h[posFlags] = 0

	le.PutUint32(h[posData:], uint32(headerSize+len(l.gd3)-posData))
	return h
}

func (l *Logger) write(b uint8) {
	if b&0x80 != 0 {
		l.register = b & 0x70
	}
	l.insert(cmdWrite, b)
}

func (l *Logger) insert(data ...byte) {
	l.flushDelay()
	l.commands = append(l.commands, data...)
}

// flushDelay converts the cycles logged since the last command into wait
// commands.
func (l *Logger) flushDelay() {
	target := l.TotalSamples()
	delay := target - l.samples
	l.samples = target

	for delay > 0 {
		wait := min(delay, 0xFFFF)
		delay -= wait
		l.commands = appendWait(l.commands, uint16(wait))
	}
}

func appendWait(buf []byte, wait uint16) []byte {
	switch {
	case wait == samplesPAL:
		return append(buf, cmdWaitPAL)
	case wait == 2*samplesPAL:
		return append(buf, cmdWaitPAL, cmdWaitPAL)
	case wait == samplesNTSC:
		return append(buf, cmdWaitNTSC)
	case wait == 2*samplesNTSC:
		return append(buf, cmdWaitNTSC, cmdWaitNTSC)
	case wait <= 16:
		return append(buf, cmdWaitShort+byte(wait-1))
	case wait <= 32:
		return append(buf, cmdWaitLong, cmdWaitShort+byte(wait-17))
	default:
		return append(buf, cmdWait, byte(wait), byte(wait>>8))
	}
}
