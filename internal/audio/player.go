//go:build !headless

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/retroenv/retrogolib/log"
)

// drainInterval is the polling interval while waiting for buffered audio.
const drainInterval = 10 * time.Millisecond

// Player plays the samples on the default audio device. Writing a frame
// blocks until the device consumed enough data, which paces the caller to
// real time.
type Player struct {
	logger *log.Logger
	ctx    *oto.Context
	player *oto.Player

	reader *io.PipeReader
	writer *io.PipeWriter
	buf    []byte
	err    error
}

// NewPlayer opens the audio device and starts the playback.
func NewPlayer(logger *log.Logger, sampleRate, channels int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("creating audio context: %w", err)
	}
	<-ready

	reader, writer := io.Pipe()
	p := &Player{
		logger: logger,
		ctx:    ctx,
		reader: reader,
		writer: writer,
	}
	p.player = ctx.NewPlayer(reader)
	p.player.Play()

	logger.Debug("Audio playback started",
		log.Int("sample_rate", sampleRate),
		log.Int("channels", channels))
	return p, nil
}

// FlushBuffer queues the samples of a frame for playback.
func (p *Player) FlushBuffer(samples []int16, _ int) {
	if p.err != nil {
		return
	}

	p.buf = p.buf[:0]
	for _, sample := range samples {
		p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(sample))
	}
	if _, err := p.writer.Write(p.buf); err != nil {
		p.err = fmt.Errorf("writing samples to player: %w", err)
	}
}

// Close waits until all queued samples are played and closes the player.
func (p *Player) Close() error {
	_ = p.writer.Close()
	for p.player.IsPlaying() {
		time.Sleep(drainInterval)
	}
	if err := p.player.Close(); err != nil && p.err == nil {
		p.err = fmt.Errorf("closing player: %w", err)
	}
	_ = p.reader.Close()
	return p.err
}
