// Package audio contains the sinks that receive the rendered samples of the
// audio pump: a WAV file writer and a host audio player.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavHeaderSize  = 44
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	formatPCM      = 1
	fmtChunkSize   = 16

	posRIFFSize = 4
	posDataSize = 40
)

var errInvalidFormat = errors.New("invalid audio format")

// WAVWriter writes 16 bit PCM samples into a RIFF WAVE file. The chunk sizes
// of the header are patched when the writer is closed.
type WAVWriter struct {
	w          io.WriteSeeker
	sampleRate int
	channels   int
	dataSize   uint64
	buf        []byte
	err        error
}

// NewWAVWriter writes a WAV header to the writer and returns a writer for
// the samples.
func NewWAVWriter(w io.WriteSeeker, sampleRate, channels int) (*WAVWriter, error) {
	if sampleRate <= 0 || channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", errInvalidFormat, sampleRate, channels)
	}

	wav := &WAVWriter{
		w:          w,
		sampleRate: sampleRate,
		channels:   channels,
	}
	if _, err := w.Write(wav.header()); err != nil {
		return nil, fmt.Errorf("writing wav header: %w", err)
	}
	return wav, nil
}

// FlushBuffer writes the samples of a frame. The first error is kept and
// returned by Close.
func (w *WAVWriter) FlushBuffer(samples []int16, _ int) {
	if w.err != nil {
		return
	}
	w.err = w.Write(samples)
}

// Write writes interleaved samples.
func (w *WAVWriter) Write(samples []int16) error {
	w.buf = w.buf[:0]
	for _, sample := range samples {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(sample))
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	w.dataSize += uint64(len(w.buf))
	return nil
}

// Samples returns the number of written samples per channel.
func (w *WAVWriter) Samples() int {
	return int(w.dataSize / uint64(bytesPerSample*w.channels))
}

// Close patches the header with the final sizes. The underlying writer is
// not closed.
func (w *WAVWriter) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.dataSize > math.MaxUint32-wavHeaderSize {
		return fmt.Errorf("%w: wav data of %d bytes is too large", errInvalidFormat, w.dataSize)
	}

	if err := w.patch(posRIFFSize, uint32(w.dataSize)+wavHeaderSize-8); err != nil {
		return err
	}
	if err := w.patch(posDataSize, uint32(w.dataSize)); err != nil {
		return err
	}
	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking wav end: %w", err)
	}
	return nil
}

func (w *WAVWriter) patch(offset int64, value uint32) error {
	if _, err := w.w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking wav header: %w", err)
	}
	if _, err := w.w.Write(binary.LittleEndian.AppendUint32(nil, value)); err != nil {
		return fmt.Errorf("patching wav header: %w", err)
	}
	return nil
}

func (w *WAVWriter) header() []byte {
	blockAlign := w.channels * bytesPerSample
	le := binary.LittleEndian

	h := make([]byte, 0, wavHeaderSize)
	h = append(h, "RIFF"...)
	h = le.AppendUint32(h, wavHeaderSize-8)
	h = append(h, "WAVEfmt "...)
	h = le.AppendUint32(h, fmtChunkSize)
	h = le.AppendUint16(h, formatPCM)
	h = le.AppendUint16(h, uint16(w.channels))
	h = le.AppendUint32(h, uint32(w.sampleRate))
	h = le.AppendUint32(h, uint32(w.sampleRate*blockAlign))
	h = le.AppendUint16(h, uint16(blockAlign))
	h = le.AppendUint16(h, bitsPerSample)
	h = append(h, "data"...)
	h = le.AppendUint32(h, 0)
	return h
}
