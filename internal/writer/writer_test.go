package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestBundleDataWrites(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		prefix   string
		expected string
	}{
		{
			name:     "single line",
			data:     []byte{0x01, 0xAB},
			expected: ".byte $01, $ab\n",
		},
		{
			name:     "directive prefix",
			data:     []byte{0x7F},
			prefix:   " ",
			expected: " .byte $7f\n",
		},
		{
			name: "two lines",
			data: make([]byte, 17),
			expected: ".byte " + strings.Repeat("$00, ", 15) + "$00\n" +
				".byte $00\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := New(buf, Options{DirectivePrefix: tt.prefix})
			assert.NoError(t, w.BundleDataWrites(tt.data, nil))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriter_SegmentSplit(t *testing.T) {
	chunk := &compiler.Chunk{Type: compiler.ChunkPattern, Label: "a"}
	chunk.StoreString(make([]byte, 15))
	chunk.StoreReference("a")
	result := &compiler.Result{Chunks: []*compiler.Chunk{chunk}}

	var segments []int
	buf := &bytes.Buffer{}
	w := New(buf, Options{
		LowByte:     "LOW(%s)",
		HighByte:    "HIGH(%s)",
		SegmentSize: 16,
		SegmentStart: func(index int) error {
			segments = append(segments, index)
			buf.WriteString("; segment\n")
			return nil
		},
	})
	assert.NoError(t, w.WriteChunks(result))

	expected := "a:\n" +
		".byte " + strings.Repeat("$00, ", 14) + "$00\n" +
		".byte LOW(a)\n" +
		"; segment\n" +
		".byte HIGH(a)\n"
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, []int{1}, segments)
}

func TestWriter_WriteChunks(t *testing.T) {
	result, err := compiler.New(song.New(), compiler.Options{DriverSize: 0x100}, log.NewTestLogger(t)).Compile()
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	w := New(buf, Options{OffsetComments: true})
	assert.NoError(t, w.WriteCommentHeader("Title", "Artist", result))
	assert.NoError(t, w.WriteChunks(result))

	output := buf.String()
	assert.Contains(t, output, "; Title: Title\n")
	assert.Contains(t, output, "ft_header:\n.word ft_song_list\n.word ft_instrument_list\n")
	assert.Contains(t, output, ".word $0E10\n.word $0BB8\n")
	assert.Contains(t, output, "\nft_song_0:\n.word ft_s0_frames\n")
	assert.Contains(t, output, "; $0004")
	assert.Equal(t, result.DataSize, w.position)
}

func TestWriter_WriteChunksBankSwitched(t *testing.T) {
	opts := compiler.Options{DriverSize: 0x100, AllowBankSwitching: true, ForceBankSwitching: true}
	result, err := compiler.New(song.New(), opts, log.NewTestLogger(t)).Compile()
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	w := New(buf, Options{PadDirective: ".res %d, $00"})
	assert.NoError(t, w.WriteChunks(result))

	output := buf.String()
	assert.Contains(t, output, "; ft_song_list")
	assert.Contains(t, output, "; bank 0")
	assert.False(t, strings.Contains(output, ".word ft_"))
}

func TestOutputAliasMap(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, Options{})
	assert.NoError(t, w.OutputAliasMap(map[string]uint16{"B": 2, "A": 0x1234}))
	assert.Equal(t, "A = $1234\nB = $0002\n\n", buf.String())
}
