package asm6

import (
	"context"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestAssembleUsingExternalApp_NotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := AssembleUsingExternalApp(context.Background(), "music.asm", "music.bin")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errNotInstalled))
}
