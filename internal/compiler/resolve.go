package compiler

import (
	"fmt"

	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/psgtracker/internal/symbols"
	"github.com/retroenv/retrogolib/log"
)

// Bank layout of bank switched music data. Banks are 4 KiB pages of the
// 0x8000-0xFFFF address space, switchable chunks are staged in the page at
// offset 0x3000 which the driver maps to the bank of the chunk.
const (
	bankSize          = 0x1000
	bankMask          = bankSize - 1
	patternSwitchBank = 3
	switchAreaStart   = 0x3000
	switchAreaEnd     = 0x4000
	maxBank           = 0xFF
)

// resolve assigns offsets and banks to all chunks and rewrites all
// references with the resolved values.
func (c *Compiler) resolve() error {
	if c.bankSwitched {
		c.addBankSwitching()
		c.dataSize = c.countData()
		if err := c.allocateBanks(); err != nil {
			return err
		}
		c.chunks[0].setValue(headerFlagItem, c.chunks[0].Items[headerFlagItem].Value|headerFlagBankSwitched)
	} else {
		c.allocateLinear()
	}

	table := symbols.New[*Chunk]()
	for _, chunk := range c.chunks {
		if err := table.Add(chunk.Label, chunk); err != nil {
			return fmt.Errorf("collecting labels: %w", err)
		}
	}
	if err := c.assignLabels(table); err != nil {
		return err
	}
	c.logger.Debug("Labels resolved", log.Int("labels", table.Len()))

	for _, label := range table.Unused() {
		if label != labelHeader {
			c.logger.Debug("Unreferenced chunk", log.String("label", label))
		}
	}
	return nil
}

// addBankSwitching appends the bank of every referenced pattern to each frame.
func (c *Compiler) addBankSwitching() {
	track := 0
	for _, chunk := range c.chunks {
		switch chunk.Type {
		case ChunkFrameList:
			c.trackFrameSize[track] += len(chunk.Items) * song.ChannelCount
			track++

		case ChunkFrame:
			refs := len(chunk.Items)
			for i := range refs {
				chunk.StoreBankReference(chunk.RefLabel(i), 0)
			}

		default:
		}
	}
}

func (c *Compiler) allocateLinear() {
	offset := 0
	for _, chunk := range c.chunks {
		chunk.Offset = offset
		chunk.Bank = 0
		offset += chunk.Size()
	}
}

// allocateBanks places the fixed chunks first, followed by the switchable
// chunks packed so that no chunk crosses a bank boundary.
func (c *Compiler) allocateBanks() error {
	driver := c.opts.DriverSize
	offset := 0
	for _, chunk := range c.chunks {
		if chunk.Type.Switchable() {
			continue
		}
		chunk.Offset = offset
		chunk.Bank = 0
		offset += chunk.Size()
	}
	if offset+driver > switchAreaStart {
		return fmt.Errorf("%w: %d bytes of instrument data and %d bytes of driver exceed %d bytes",
			ErrInstrumentOverflow, offset, driver, switchAreaStart)
	}

	bank := patternSwitchBank
	track := 0
	var err error
	for _, chunk := range c.chunks {
		switch chunk.Type {
		case ChunkFrameList:
			offset, bank, err = c.fitChunk(offset, bank, c.trackFrameSize[track], chunk.Label)
			track++
		case ChunkPattern:
			offset, bank, err = c.fitChunk(offset, bank, chunk.Size(), chunk.Label)
		case ChunkFrame:
		default:
			continue
		}
		if err != nil {
			return err
		}

		chunk.Offset = offset
		chunk.Bank = bankOf(offset, driver, bank)
		offset += chunk.Size()
	}

	c.lastBank = bankOf(offset, driver, bank) + 1
	return nil
}

// fitChunk returns the offset and bank counter at which a block of the given
// size fits without crossing a bank boundary or passing the switch area.
func (c *Compiler) fitChunk(offset, bank, size int, label string) (int, int, error) {
	if size > bankSize {
		return 0, 0, fmt.Errorf("%w: chunk '%s' has %d bytes, maximum is %d", ErrSongTooLarge, label, size, bankSize)
	}

	driver := c.opts.DriverSize
	address := offset + driver
	end := address + size
	if size == 0 || (address/bankSize == (end-1)/bankSize && end <= switchAreaEnd) {
		return offset, bank, nil
	}

	next := (address | bankMask) + 1
	if bank <= patternSwitchBank && next+size <= switchAreaEnd {
		return next - driver, bank, nil
	}

	bank++
	if bank > maxBank {
		return 0, 0, fmt.Errorf("%w: music data needs more than %d banks", ErrSongTooLarge, maxBank)
	}
	return switchAreaStart - driver, bank, nil
}

// bankOf returns the bank of a chunk placed at the offset. Chunks in the fixed
// area use the bank of their address, staged chunks the bank counter.
func bankOf(offset, driver, bank int) int {
	if bank <= patternSwitchBank {
		return (offset + driver) / bankSize
	}
	return bank
}

// assignLabels rewrites references to the address of their target chunk and
// bank references to the bank of the target chunk.
func (c *Compiler) assignLabels(table *symbols.Manager[*Chunk]) error {
	for _, chunk := range c.chunks {
		for i := range chunk.Items {
			item := &chunk.Items[i]
			if item.Kind != ItemReference && item.Kind != ItemBankReference {
				continue
			}

			target, ok := table.Get(item.Label)
			if !ok {
				return fmt.Errorf("%w: '%s' referenced by '%s'", ErrUnresolvedLabel, item.Label, chunk.Label)
			}
			table.MarkUsed(item.Label)

			if item.Kind == ItemReference {
				item.Value = c.opts.BaseAddress + uint16(target.Offset)
				continue
			}
			item.Value = 0
			if c.bankSwitched {
				item.Value = uint16(max(target.Bank, patternSwitchBank))
			}
		}
	}
	return nil
}

// Position returns the position of a chunk in a bank switched image that
// starts at the driver: staged chunks are placed into the 4 KiB page of their
// bank.
func Position(chunk *Chunk, driverSize int) int {
	address := chunk.Offset + driverSize
	if chunk.Bank > patternSwitchBank {
		return chunk.Bank*bankSize + address&bankMask
	}
	return address
}
