//go:build headless

package audio

import (
	"errors"

	"github.com/retroenv/retrogolib/log"
)

var errPlaybackUnavailable = errors.New("audio playback is not available in headless builds")

// Player is not available in headless builds.
type Player struct{}

// NewPlayer returns an error, headless builds have no audio device support.
func NewPlayer(_ *log.Logger, _, _ int) (*Player, error) {
	return nil, errPlaybackUnavailable
}

// FlushBuffer drops the samples.
func (p *Player) FlushBuffer([]int16, int) {}

// Close does nothing.
func (p *Player) Close() error { return nil }
