package compiler

import (
	"errors"

	"github.com/retroenv/psgtracker/internal/song"
)

// Compile errors.
var (
	ErrUnresolvedLabel      = errors.New("unresolved label")
	ErrInstrumentOverflow   = errors.New("instrument data overflow")
	ErrSongTooLarge         = errors.New("song is too large")
	ErrExpansionUnsupported = errors.New("expansion chips are not supported")
	ErrLimitExceeded        = song.ErrLimitExceeded
)
