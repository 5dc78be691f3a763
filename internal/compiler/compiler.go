// Package compiler converts a song document into relocatable music data made
// of labeled chunks that reference each other.
package compiler

import (
	"bytes"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/retrogolib/log"
)

// Chunk labels.
const (
	labelHeader         = "ft_header"
	labelSongList       = "ft_song_list"
	labelInstrumentList = "ft_instrument_list"
)

const (
	maxLinearSize = 0x8000 // driver and music data without bank switching

	headerFlagBankSwitched = 0x01
	headerFlagOldVibrato   = 0x02
	headerFlagItem         = 2 // item index of the flag byte in the header chunk
)

// DuplicateScope is the range in which identical patterns are merged.
type DuplicateScope int

// Duplicate pattern scopes.
const (
	ScopeModule DuplicateScope = iota // patterns are shared across all tracks
	ScopeTrack                        // patterns are only shared within a track
)

// Hasher returns the hash of compiled pattern data.
type Hasher func(data []byte) uint32

// Options controls the compiler.
type Options struct {
	DriverSize  int    // size of the driver image that precedes the music data
	BaseAddress uint16 // added to every resolved reference

	AllowBankSwitching bool // music data that does not fit into 32 KiB is split into banks
	ForceBankSwitching bool // always use bank switching, requires AllowBankSwitching

	Scope  DuplicateScope
	Hasher Hasher // defaults to 32 bit FNV-1a

	DumpChunks bool // log the chunk graph at debug level
}

// Result is the compiled music data.
type Result struct {
	Chunks       []*Chunk
	BankSwitched bool
	DataSize     int
	DriverSize   int
	BaseAddress  uint16
	LastBank     int // first unused bank, only set when bank switched
	Tracks       int

	Instruments       int // instruments stored in the music data
	Sequences         int // sequences stored in the music data
	DuplicatePatterns int
	HashCollisions    int
}

// Compiler compiles one document. A compiler is used for a single Compile call.
type Compiler struct {
	logger *log.Logger
	doc    *song.Document
	opts   Options

	chunks []*Chunk

	instruments     map[int]int // document instrument slot to stored index
	instrumentOrder []int
	sequenceUsed    [song.SequenceTypeCount][song.MaxSequences]bool
	sequenceCount   int

	trackFrameSize []int
	patternHashes  map[uint32][]*Chunk
	duplicates     map[string]string
	duplicateCount int
	collisions     int

	dataSize     int
	bankSwitched bool
	lastBank     int
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// New returns a compiler for the document.
func New(doc *song.Document, opts Options, logger *log.Logger) *Compiler {
	if opts.Hasher == nil {
		opts.Hasher = fnvHash
	}
	return &Compiler{
		logger:        logger,
		doc:           doc,
		opts:          opts,
		instruments:   make(map[int]int),
		patternHashes: make(map[uint32][]*Chunk),
		duplicates:    make(map[string]string),
	}
}

func fnvHash(data []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(data)
	return h.Sum32()
}

// Compile builds the chunks of the document and resolves all references.
func (c *Compiler) Compile() (*Result, error) {
	if c.chunks != nil {
		return nil, fmt.Errorf("document was already compiled")
	}
	if c.doc.Expansion != song.ExpansionNone {
		return nil, fmt.Errorf("%w: expansion 0x%02X", ErrExpansionUnsupported, c.doc.Expansion)
	}
	if c.opts.DriverSize < 0 || c.opts.DriverSize >= maxLinearSize {
		return nil, fmt.Errorf("invalid driver size %d", c.opts.DriverSize)
	}
	if err := c.doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating document: %w", err)
	}

	c.scanSong()
	c.createHeader()
	c.storeSequences()
	c.storeInstruments()
	c.storeSongs()

	c.dataSize = c.countData()
	c.bankSwitched = c.opts.ForceBankSwitching || c.dataSize+c.opts.DriverSize > maxLinearSize
	if c.bankSwitched && !c.opts.AllowBankSwitching {
		return nil, fmt.Errorf("%w: %d bytes of music data and %d bytes of driver exceed %d bytes",
			ErrSongTooLarge, c.dataSize, c.opts.DriverSize, maxLinearSize)
	}

	if err := c.resolve(); err != nil {
		return nil, err
	}

	c.logger.Debug("Music data compiled",
		log.Int("instruments", len(c.instrumentOrder)),
		log.Int("sequences", c.sequenceCount),
		log.Int("tracks", len(c.doc.Tracks)),
		log.Int("chunks", len(c.chunks)),
		log.Int("size", c.dataSize))
	if c.duplicateCount > 0 {
		c.logger.Debug("Removed duplicate patterns",
			log.Int("count", c.duplicateCount),
			log.Int("collisions", c.collisions))
	}
	if c.opts.DumpChunks {
		c.logger.Debug("Chunk graph", log.String("chunks", dumpConfig.Sdump(c.chunks)))
	}

	return &Result{
		Chunks:            c.chunks,
		BankSwitched:      c.bankSwitched,
		DataSize:          c.dataSize,
		DriverSize:        c.opts.DriverSize,
		BaseAddress:       c.opts.BaseAddress,
		LastBank:          c.lastBank,
		Tracks:            len(c.doc.Tracks),
		Instruments:       len(c.instrumentOrder),
		Sequences:         c.sequenceCount,
		DuplicatePatterns: c.duplicateCount,
		HashCollisions:    c.collisions,
	}, nil
}

// scanSong assigns stored indices to all instruments that are used in any
// pattern and marks their enabled sequences as used.
func (c *Compiler) scanSong() {
	used := make(map[int]bool)
	for _, track := range c.doc.Tracks {
		for ch := range song.ChannelCount {
			for _, pattern := range track.Patterns[ch] {
				if pattern == nil {
					continue
				}
				for row := 0; row < track.PatternLength && row < len(pattern.Rows); row++ {
					if inst := pattern.Rows[row].Instrument; inst != song.NoInstrument {
						used[inst] = true
					}
				}
			}
		}
	}

	for i, inst := range c.doc.Instruments {
		if inst == nil || !used[i] {
			continue
		}
		c.instruments[i] = len(c.instrumentOrder)
		c.instrumentOrder = append(c.instrumentOrder, i)

		for typ, seq := range inst.Sequences {
			if seq.Enabled {
				c.sequenceUsed[typ][seq.Index] = true
			}
		}
	}
}

func (c *Compiler) addChunk(typ ChunkType, label string) *Chunk {
	chunk := newChunk(typ, label)
	c.chunks = append(c.chunks, chunk)
	return chunk
}

func (c *Compiler) createHeader() {
	chunk := c.addChunk(ChunkHeader, labelHeader)
	chunk.StoreReference(labelSongList)
	chunk.StoreReference(labelInstrumentList)

	var flags uint8
	if c.doc.VibratoStyle == song.VibratoOld {
		flags |= headerFlagOldVibrato
	}
	chunk.StoreByte(flags)

	ntsc, pal := c.frameDividers()
	chunk.StoreWord(ntsc)
	chunk.StoreWord(pal)
}

// frameDividers returns the tempo dividers for NTSC and PAL playback.
func (c *Compiler) frameDividers() (uint16, uint16) {
	if c.doc.EngineSpeed == 0 {
		return 60 * 60, 50 * 60
	}
	divider := uint16(c.doc.EngineSpeed * 60)
	return divider, divider
}

func sequenceLabel(index int, typ song.SequenceType) string {
	return fmt.Sprintf("ft_seq_2a03_%d", index*song.SequenceTypeCount+int(typ))
}

func (c *Compiler) storeSequences() {
	for index := range song.MaxSequences {
		for typ := range song.SequenceType(song.SequenceTypeCount) {
			if !c.sequenceUsed[typ][index] {
				continue
			}
			seq := c.doc.Sequence(typ, index)
			if seq == nil || len(seq.Items) == 0 {
				continue
			}
			c.storeSequence(seq, sequenceLabel(index, typ))
			c.sequenceCount++
		}
	}
}

func (c *Compiler) storeSequence(seq *song.Sequence, label string) {
	chunk := c.addChunk(ChunkSequence, label)
	count := len(seq.Items)

	// negative points mean none, points past the end are clamped
	loop := uint8(0xFF)
	if seq.Loop >= 0 {
		loop = uint8(min(seq.Loop, count))
	}
	var release uint8
	if seq.Release >= 0 {
		release = uint8(min(seq.Release, count-1) + 1)
	}

	chunk.StoreByte(uint8(count))
	chunk.StoreByte(loop)
	chunk.StoreByte(release)
	chunk.StoreByte(seq.Setting)
	for _, item := range seq.Items {
		chunk.StoreByte(uint8(item))
	}
}

func (c *Compiler) storeInstruments() {
	list := c.addChunk(ChunkInstrumentList, labelInstrumentList)
	for index := range c.instrumentOrder {
		list.StoreReference(fmt.Sprintf("ft_inst_%d", index))
	}

	for index, slot := range c.instrumentOrder {
		inst := c.doc.Instruments[slot]
		chunk := c.addChunk(ChunkInstrument, fmt.Sprintf("ft_inst_%d", index))

		var mask uint8
		var labels []string
		for typ, ref := range inst.Sequences {
			if !ref.Enabled {
				continue
			}
			seq := c.doc.Sequence(song.SequenceType(typ), ref.Index)
			if seq == nil || len(seq.Items) == 0 {
				continue
			}
			mask |= 1 << typ
			labels = append(labels, sequenceLabel(ref.Index, song.SequenceType(typ)))
		}

		chunk.StoreByte(mask)
		for _, label := range labels {
			chunk.StoreReference(label)
		}
	}
}

func (c *Compiler) storeSongs() {
	list := c.addChunk(ChunkSongList, labelSongList)
	for i := range c.doc.Tracks {
		list.StoreReference(fmt.Sprintf("ft_song_%d", i))
	}

	for i, track := range c.doc.Tracks {
		chunk := c.addChunk(ChunkSong, fmt.Sprintf("ft_song_%d", i))
		frameList := fmt.Sprintf("ft_s%d_frames", i)
		chunk.StoreReference(frameList)
		chunk.StoreByte(uint8(len(track.Frames)))
		chunk.StoreByte(uint8(track.PatternLength))
		chunk.StoreByte(uint8(track.Speed))
		chunk.StoreByte(uint8(track.Tempo))
		chunk.StoreBankReference(frameList, 0)
	}

	for i, track := range c.doc.Tracks {
		c.createFrameList(i, track)
		c.storePatterns(i, track)
	}
}

func (c *Compiler) createFrameList(index int, track *song.Track) {
	list := c.addChunk(ChunkFrameList, fmt.Sprintf("ft_s%d_frames", index))
	for frame := range track.Frames {
		list.StoreReference(fmt.Sprintf("ft_s%df%d", index, frame))
	}

	for frame := range track.Frames {
		chunk := c.addChunk(ChunkFrame, fmt.Sprintf("ft_s%df%d", index, frame))
		for ch := range song.ChannelCount {
			pattern := track.PatternAtFrame(frame, ch)
			chunk.StoreReference(patternLabel(index, pattern, ch))
		}
	}

	frames := len(track.Frames)
	c.trackFrameSize = append(c.trackFrameSize, 2*frames+2*song.ChannelCount*frames)
}

func patternLabel(track, pattern, channel int) string {
	return fmt.Sprintf("ft_s%dp%dc%d", track, pattern, channel)
}

// storePatterns compiles all patterns of a track that are used by a frame.
// Patterns with content identical to an already stored pattern are not
// stored, frames are redirected to the stored pattern instead.
func (c *Compiler) storePatterns(index int, track *song.Track) {
	for pattern := range song.MaxPatterns {
		for ch := range song.ChannelCount {
			if !track.IsPatternAddressed(pattern, ch) {
				continue
			}

			label := patternLabel(index, pattern, ch)
			data := compilePattern(track, track.Pattern(ch, pattern), ch, c.instruments)
			hash := c.opts.Hasher(data)

			if existing := c.findPattern(hash, data); existing != nil {
				c.duplicates[label] = existing.Label
				c.duplicateCount++
				continue
			}
			if len(c.patternHashes[hash]) > 0 {
				c.collisions++
			}

			chunk := c.addChunk(ChunkPattern, label)
			chunk.StoreString(data)
			c.patternHashes[hash] = append(c.patternHashes[hash], chunk)
		}
	}

	c.redirectDuplicates()

	if c.opts.Scope == ScopeTrack {
		clear(c.patternHashes)
		clear(c.duplicates)
	}
}

func (c *Compiler) findPattern(hash uint32, data []byte) *Chunk {
	for _, chunk := range c.patternHashes[hash] {
		if bytes.Equal(chunk.StringData(), data) {
			return chunk
		}
	}
	return nil
}

// redirectDuplicates replaces frame references to removed patterns.
func (c *Compiler) redirectDuplicates() {
	for _, chunk := range c.chunks {
		if chunk.Type != ChunkFrame {
			continue
		}
		for i := range chunk.Items {
			item := &chunk.Items[i]
			if item.Kind != ItemReference {
				continue
			}
			if target, ok := c.duplicates[item.Label]; ok {
				item.Label = target
			}
		}
	}
}

func (c *Compiler) countData() int {
	size := 0
	for _, chunk := range c.chunks {
		size += chunk.Size()
	}
	return size
}
