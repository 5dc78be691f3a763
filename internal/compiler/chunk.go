package compiler

import (
	"encoding/binary"
	"fmt"
)

// ChunkType is the kind of data a chunk holds.
type ChunkType int

// Chunk types in the order they are created.
const (
	ChunkHeader ChunkType = iota
	ChunkSequence
	ChunkInstrumentList
	ChunkInstrument
	ChunkSongList
	ChunkSong
	ChunkFrameList
	ChunkFrame
	ChunkPattern
)

var chunkTypeNames = [...]string{
	"header", "sequence", "instrument list", "instrument", "song list", "song",
	"frame list", "frame", "pattern",
}

func (t ChunkType) String() string {
	if t >= 0 && int(t) < len(chunkTypeNames) {
		return chunkTypeNames[t]
	}
	return fmt.Sprintf("chunk type %d", int(t))
}

// Switchable returns whether chunks of this type are placed into switchable
// banks when bank switching is used.
func (t ChunkType) Switchable() bool {
	return t == ChunkFrameList || t == ChunkFrame || t == ChunkPattern
}

// ItemKind is the kind of a chunk item.
type ItemKind int

// Chunk item kinds.
const (
	ItemByte ItemKind = iota
	ItemWord
	ItemReference     // 16 bit address of a label
	ItemBankReference // bank number of a label
	ItemString        // raw bytes
)

// Item is one element of a chunk.
type Item struct {
	Kind  ItemKind
	Value uint16 // byte or word value, resolved address or bank
	Label string // target of references
	Data  []byte // content of string items
}

// Size returns the number of bytes the item occupies in the output.
func (i Item) Size() int {
	switch i.Kind {
	case ItemByte, ItemBankReference:
		return 1
	case ItemWord, ItemReference:
		return 2
	case ItemString:
		return len(i.Data)
	default:
		return 0
	}
}

// Chunk is a labeled block of music data.
type Chunk struct {
	Type   ChunkType
	Label  string
	Items  []Item
	Bank   int
	Offset int // offset relative to the music data start, set by label resolution
}

func newChunk(typ ChunkType, label string) *Chunk {
	return &Chunk{Type: typ, Label: label}
}

// StoreByte appends a byte.
func (c *Chunk) StoreByte(value uint8) {
	c.Items = append(c.Items, Item{Kind: ItemByte, Value: uint16(value)})
}

// StoreWord appends a 16 bit little endian word.
func (c *Chunk) StoreWord(value uint16) {
	c.Items = append(c.Items, Item{Kind: ItemWord, Value: value})
}

// StoreReference appends the address of a label.
func (c *Chunk) StoreReference(label string) {
	c.Items = append(c.Items, Item{Kind: ItemReference, Label: label})
}

// StoreBankReference appends the bank number of a label.
func (c *Chunk) StoreBankReference(label string, bank uint8) {
	c.Items = append(c.Items, Item{Kind: ItemBankReference, Label: label, Value: uint16(bank)})
}

// StoreString appends raw bytes.
func (c *Chunk) StoreString(data []byte) {
	c.Items = append(c.Items, Item{Kind: ItemString, Data: data})
}

// Size returns the number of bytes the chunk occupies in the output.
func (c *Chunk) Size() int {
	size := 0
	for _, item := range c.Items {
		size += item.Size()
	}
	return size
}

// RefLabel returns the target label of the item at the given index.
func (c *Chunk) RefLabel(index int) string {
	return c.Items[index].Label
}

// StringData returns the raw bytes of the first string item.
func (c *Chunk) StringData() []byte {
	for _, item := range c.Items {
		if item.Kind == ItemString {
			return item.Data
		}
	}
	return nil
}

func (c *Chunk) setValue(index int, value uint16) {
	c.Items[index].Value = value
}

// Bytes returns the rendered content of the chunk.
func (c *Chunk) Bytes() []byte {
	buf := make([]byte, 0, c.Size())
	for _, item := range c.Items {
		switch item.Kind {
		case ItemByte, ItemBankReference:
			buf = append(buf, byte(item.Value))
		case ItemWord, ItemReference:
			buf = binary.LittleEndian.AppendUint16(buf, item.Value)
		case ItemString:
			buf = append(buf, item.Data...)
		}
	}
	return buf
}
