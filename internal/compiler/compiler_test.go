package compiler

import (
	"errors"
	"testing"

	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const testDriverSize = 0x0F80

// uniquePattern returns a pattern whose content depends on id.
func uniquePattern(id int, rows int) *song.Pattern {
	p := &song.Pattern{}
	for row := range rows {
		cell := song.EmptyCell()
		cell.Note = uint8(row%12) + 1
		cell.Octave = 3
		if row == 0 {
			cell.Effects[0] = song.Effect{Type: song.EffectSpeed, Param: uint8(id)}
		}
		p.SetCell(row, cell)
	}
	return p
}

// newFrameDocument returns a single track document in which frame i plays
// pattern i on every channel. Supports up to 64 frames.
func newFrameDocument(frames, rows int) *song.Document {
	doc := song.New()
	track := doc.Tracks[0]
	track.PatternLength = rows
	track.Frames = make([][song.ChannelCount]int, frames)
	for frame := range frames {
		for ch := range song.ChannelCount {
			track.Frames[frame][ch] = frame
			track.SetPattern(ch, frame, uniquePattern(ch*64+frame, rows))
		}
	}
	return doc
}

func compile(t *testing.T, doc *song.Document, opts Options) *Result {
	t.Helper()
	if opts.DriverSize == 0 {
		opts.DriverSize = testDriverSize
	}
	result, err := New(doc, opts, log.NewTestLogger(t)).Compile()
	assert.NoError(t, err)
	return result
}

func findChunk(result *Result, label string) *Chunk {
	for _, chunk := range result.Chunks {
		if chunk.Label == label {
			return chunk
		}
	}
	return nil
}

func TestCompiler_FrameDividers(t *testing.T) {
	tests := []struct {
		name  string
		speed int
		ntsc  uint16
		pal   uint16
	}{
		{name: "machine rate", speed: 0, ntsc: 3600, pal: 3000},
		{name: "custom speed", speed: 100, ntsc: 6000, pal: 6000},
		{name: "fastest speed", speed: song.MaxEngineSpeed, ntsc: 24000, pal: 24000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := song.New()
			doc.EngineSpeed = tt.speed
			result := compile(t, doc, Options{})

			header := result.Chunks[0]
			assert.Equal(t, ChunkHeader, header.Type)
			assert.Equal(t, tt.ntsc, header.Items[3].Value)
			assert.Equal(t, tt.pal, header.Items[4].Value)
			assert.Equal(t, uint16(0), header.Items[headerFlagItem].Value)
		})
	}
}

func TestCompiler_OldVibratoFlag(t *testing.T) {
	doc := song.New()
	doc.VibratoStyle = song.VibratoOld
	result := compile(t, doc, Options{})
	assert.Equal(t, uint16(headerFlagOldVibrato), result.Chunks[0].Items[headerFlagItem].Value)
}

func TestCompiler_DuplicatePatterns(t *testing.T) {
	doc := newFrameDocument(4, 16)
	track := doc.Tracks[0]
	track.SetPattern(0, 3, uniquePattern(0, 16))

	result := compile(t, doc, Options{})
	assert.Equal(t, 1, result.DuplicatePatterns)
	assert.Equal(t, 0, result.HashCollisions)
	assert.Nil(t, findChunk(result, "ft_s0p3c0"))

	frame := findChunk(result, "ft_s0f3")
	assert.NotNil(t, frame)
	assert.Equal(t, "ft_s0p0c0", frame.RefLabel(0))
	assert.Equal(t, "ft_s0p3c1", frame.RefLabel(1))

	pattern := findChunk(result, "ft_s0p0c0")
	assert.Equal(t, uint16(pattern.Offset), frame.Items[0].Value)
}

func TestCompiler_HashCollisions(t *testing.T) {
	doc := newFrameDocument(2, 8)
	doc.Tracks[0].SetPattern(1, 1, uniquePattern(0, 8))

	result := compile(t, doc, Options{
		Hasher: func([]byte) uint32 { return 0 },
	})

	// 8 addressed patterns, one of them equal to channel 0 pattern 0
	assert.Equal(t, 1, result.DuplicatePatterns)
	assert.Equal(t, 6, result.HashCollisions)
	assert.Equal(t, "ft_s0p0c0", findChunk(result, "ft_s0f1").RefLabel(1))
}

func TestCompiler_DuplicateScope(t *testing.T) {
	doc := newFrameDocument(1, 8)
	second := song.NewTrack()
	second.PatternLength = 8
	for ch := range song.ChannelCount {
		second.SetPattern(ch, 0, uniquePattern(ch*64, 8))
	}
	doc.Tracks = append(doc.Tracks, second)

	tests := []struct {
		name       string
		scope      DuplicateScope
		duplicates int
		target     string
	}{
		{name: "module", scope: ScopeModule, duplicates: 4, target: "ft_s0p0c0"},
		{name: "track", scope: ScopeTrack, duplicates: 0, target: "ft_s1p0c0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compile(t, doc, Options{Scope: tt.scope})
			assert.Equal(t, tt.duplicates, result.DuplicatePatterns)
			assert.Equal(t, tt.target, findChunk(result, "ft_s1f0").RefLabel(0))
		})
	}
}

func TestCompiler_LinearOffsets(t *testing.T) {
	doc := newFrameDocument(3, 16)
	result := compile(t, doc, Options{BaseAddress: 0x100})
	assert.False(t, result.BankSwitched)

	offset := 0
	for _, chunk := range result.Chunks {
		assert.Equal(t, offset, chunk.Offset)
		assert.Equal(t, 0, chunk.Bank)
		offset += chunk.Size()
	}
	assert.Equal(t, result.DataSize, offset)

	for _, chunk := range result.Chunks {
		for _, item := range chunk.Items {
			switch item.Kind {
			case ItemReference:
				target := findChunk(result, item.Label)
				assert.NotNil(t, target)
				assert.Equal(t, uint16(0x100+target.Offset), item.Value)
			case ItemBankReference:
				assert.Equal(t, uint16(0), item.Value)
			default:
			}
		}
	}
}

func TestCompiler_BankSwitching(t *testing.T) {
	doc := newFrameDocument(40, 64)
	result := compile(t, doc, Options{AllowBankSwitching: true, ForceBankSwitching: true})
	assert.True(t, result.BankSwitched)
	assert.Equal(t, uint16(headerFlagBankSwitched), result.Chunks[0].Items[headerFlagItem].Value)
	assert.True(t, result.LastBank > 4)

	frameRun := 0
	for _, chunk := range result.Chunks {
		address := chunk.Offset + testDriverSize
		size := chunk.Size()
		if chunk.Type == ChunkFrameList {
			frameRun = size
		}
		if chunk.Type == ChunkFrame {
			frameRun += size
			assert.Equal(t, 2*song.ChannelCount+song.ChannelCount, size)
		}
		if !chunk.Type.Switchable() {
			assert.True(t, address+size <= switchAreaStart)
			continue
		}

		assert.Equal(t, address/bankSize, (address+size-1)/bankSize, chunk.Label)
		assert.True(t, address+size <= switchAreaEnd, chunk.Label)
		if chunk.Bank <= patternSwitchBank {
			assert.Equal(t, address/bankSize, chunk.Bank, chunk.Label)
		} else {
			assert.True(t, address >= switchAreaStart, chunk.Label)
			assert.True(t, chunk.Bank < result.LastBank, chunk.Label)
		}
	}
	assert.Equal(t, 40*(2+2*song.ChannelCount+song.ChannelCount), frameRun)

	for _, chunk := range result.Chunks {
		if chunk.Type != ChunkFrame {
			continue
		}
		for ch := range song.ChannelCount {
			pattern := findChunk(result, chunk.RefLabel(ch))
			bank := chunk.Items[song.ChannelCount+ch]
			assert.Equal(t, ItemBankReference, bank.Kind)
			assert.Equal(t, uint16(max(pattern.Bank, patternSwitchBank)), bank.Value)
		}
	}

	songChunk := findChunk(result, "ft_song_0")
	frameList := findChunk(result, "ft_s0_frames")
	last := songChunk.Items[len(songChunk.Items)-1]
	assert.Equal(t, uint16(max(frameList.Bank, patternSwitchBank)), last.Value)
}

func TestCompiler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    func() *song.Document
		opts   Options
		target error
	}{
		{
			name: "expansion",
			doc: func() *song.Document {
				doc := song.New()
				doc.Expansion = song.ExpansionVRC6
				return doc
			},
			opts:   Options{DriverSize: testDriverSize},
			target: ErrExpansionUnsupported,
		},
		{
			name: "limit",
			doc: func() *song.Document {
				doc := song.New()
				doc.Tracks[0].Frames = make([][song.ChannelCount]int, song.MaxFrames+1)
				return doc
			},
			opts:   Options{DriverSize: testDriverSize},
			target: ErrLimitExceeded,
		},
		{
			name: "engine speed",
			doc: func() *song.Document {
				doc := song.New()
				doc.EngineSpeed = 2000
				return doc
			},
			opts:   Options{DriverSize: testDriverSize},
			target: ErrLimitExceeded,
		},
		{
			name:   "bank switching not allowed",
			doc:    song.New,
			opts:   Options{DriverSize: testDriverSize, ForceBankSwitching: true},
			target: ErrSongTooLarge,
		},
		{
			name:   "instrument overflow",
			doc:    song.New,
			opts:   Options{DriverSize: 0x2FF8, AllowBankSwitching: true, ForceBankSwitching: true},
			target: ErrInstrumentOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.doc(), tt.opts, log.NewTestLogger(t)).Compile()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
		})
	}
}

func TestCompiler_UnresolvedLabel(t *testing.T) {
	c := New(song.New(), Options{DriverSize: testDriverSize}, log.NewTestLogger(t))
	c.createHeader()
	c.addChunk(ChunkInstrumentList, labelInstrumentList)
	chunk := c.addChunk(ChunkSongList, labelSongList)
	chunk.StoreReference("ft_song_7")

	err := c.resolve()
	assert.ErrorContains(t, err, "ft_song_7")
	assert.True(t, errors.Is(err, ErrUnresolvedLabel))
}

func TestCompiler_Instruments(t *testing.T) {
	doc := song.New()
	volume := song.NewSequence(15, 10, 5)
	volume.Loop = 5
	volume.Release = 1
	doc.SetSequence(song.SequenceVolume, 2, volume)
	doc.SetSequence(song.SequenceDuty, 0, song.NewSequence(1))
	doc.SetSequence(song.SequencePitch, 1, song.NewSequence())

	unused := &song.Instrument{}
	unused.SetSequence(song.SequenceVolume, 0)
	doc.SetInstrument(0, unused)

	inst := &song.Instrument{}
	inst.SetSequence(song.SequenceVolume, 2)
	inst.SetSequence(song.SequencePitch, 1)
	inst.SetSequence(song.SequenceDuty, 0)
	doc.SetInstrument(3, inst)

	cell := song.EmptyCell()
	cell.Note = song.NoteC
	cell.Instrument = 3
	p := &song.Pattern{}
	p.SetCell(0, cell)
	doc.Tracks[0].SetPattern(0, 0, p)

	result := compile(t, doc, Options{})
	assert.Equal(t, 1, result.Instruments)
	assert.Equal(t, 2, result.Sequences)

	seq := findChunk(result, "ft_seq_2a03_10")
	assert.NotNil(t, seq)
	assert.Equal(t, []byte{3, 3, 2, 0, 15, 10, 5}, seq.Bytes())
	assert.NotNil(t, findChunk(result, "ft_seq_2a03_4"))
	assert.Nil(t, findChunk(result, "ft_seq_2a03_7"))

	list := findChunk(result, labelInstrumentList)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, "ft_inst_0", list.RefLabel(0))

	instrument := findChunk(result, "ft_inst_0")
	assert.Equal(t, uint16(0x11), instrument.Items[0].Value)
	assert.Len(t, instrument.Items, 3)
	assert.Equal(t, "ft_seq_2a03_10", instrument.RefLabel(1))
	assert.Equal(t, "ft_seq_2a03_4", instrument.RefLabel(2))

	pattern := findChunk(result, "ft_s0p0c0")
	assert.Equal(t, []byte{opcodeInstrument, 0, 1, 63}, pattern.StringData())
}

func TestCompiler_SequencePoints(t *testing.T) {
	tests := []struct {
		name     string
		loop     int
		release  int
		expected []byte
	}{
		{name: "none", loop: song.NoPoint, release: song.NoPoint, expected: []byte{3, 0xFF, 0, 0, 1, 2, 3}},
		{name: "negative", loop: -5, release: -3, expected: []byte{3, 0xFF, 0, 0, 1, 2, 3}},
		{name: "inside", loop: 1, release: 0, expected: []byte{3, 1, 1, 0, 1, 2, 3}},
		{name: "past the end", loop: 7, release: 9, expected: []byte{3, 3, 3, 0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := song.NewSequence(1, 2, 3)
			seq.Loop = tt.loop
			seq.Release = tt.release

			c := New(song.New(), Options{DriverSize: testDriverSize}, log.NewTestLogger(t))
			c.storeSequence(seq, "seq")
			assert.Equal(t, tt.expected, c.chunks[0].Bytes())
		})
	}
}

func TestPosition(t *testing.T) {
	fixed := &Chunk{Offset: 0x1234, Bank: 1}
	assert.Equal(t, 0x1234+0x80, Position(fixed, 0x80))

	staged := &Chunk{Offset: 0x3010 - 0x80, Bank: 6}
	assert.Equal(t, 0x6010, Position(staged, 0x80))
}
