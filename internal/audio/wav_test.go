package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestWAVWriter(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(name)
	assert.NoError(t, err)

	w, err := NewWAVWriter(f, 48000, 2)
	assert.NoError(t, err)

	w.FlushBuffer([]int16{1, -1, 2, -2}, 2)
	w.FlushBuffer([]int16{0x1234, 0}, 1)
	assert.Equal(t, 3, w.Samples())
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	data, err := os.ReadFile(name)
	assert.NoError(t, err)
	le := binary.LittleEndian

	assert.Len(t, data, wavHeaderSize+12)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(wavHeaderSize-8+12), le.Uint32(data[4:]))
	assert.Equal(t, "WAVEfmt ", string(data[8:16]))
	assert.Equal(t, uint32(16), le.Uint32(data[16:]))
	assert.Equal(t, uint16(1), le.Uint16(data[20:]))
	assert.Equal(t, uint16(2), le.Uint16(data[22:]))
	assert.Equal(t, uint32(48000), le.Uint32(data[24:]))
	assert.Equal(t, uint32(48000*4), le.Uint32(data[28:]))
	assert.Equal(t, uint16(4), le.Uint16(data[32:]))
	assert.Equal(t, uint16(16), le.Uint16(data[34:]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(12), le.Uint32(data[40:]))

	assert.Equal(t, []byte{0x01, 0x00, 0xFF, 0xFF}, data[44:48])
	assert.Equal(t, []byte{0x34, 0x12, 0x00, 0x00}, data[52:56])
}

func TestNewWAVWriter_InvalidFormat(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{name: "no sample rate", sampleRate: 0, channels: 1},
		{name: "no channels", sampleRate: 44100, channels: 0},
		{name: "surround", sampleRate: 44100, channels: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
			assert.NoError(t, err)
			defer func() { _ = f.Close() }()

			_, err = NewWAVWriter(f, tt.sampleRate, tt.channels)
			assert.True(t, errors.Is(err, errInvalidFormat))
		})
	}
}

type recordSink struct {
	counts []int
}

func (r *recordSink) FlushBuffer(_ []int16, count int) {
	r.counts = append(r.counts, count)
}

func TestSinks(t *testing.T) {
	a := &recordSink{}
	b := &recordSink{}
	sinks := Sinks{a, Discard{}, b}

	sinks.FlushBuffer(make([]int16, 4), 4)
	sinks.FlushBuffer(make([]int16, 2), 2)

	assert.Equal(t, []int{4, 2}, a.counts)
	assert.Equal(t, []int{4, 2}, b.counts)
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	frame := []int16{1, 2}
	rec.FlushBuffer(frame, 2)
	frame[0] = 9
	rec.FlushBuffer(frame, 2)

	assert.Equal(t, []int16{1, 2, 9, 2}, rec.Samples())
}
