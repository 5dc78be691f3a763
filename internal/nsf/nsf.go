// Package nsf encodes the file headers of NSF music files and iNES ROM images.
package nsf

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

// Header sizes.
const (
	HeaderSize     = 0x80
	INESHeaderSize = 0x10
)

const (
	magic       = "NESM\x1A"
	version     = 1
	textSize    = 32
	bankCount   = 8
	microsecond = 1000000
)

// Region is the NSF region flag.
type Region uint8

// NSF regions.
const (
	RegionNTSC Region = iota
	RegionPAL
	RegionDual
)

// ParseRegion returns the region for a machine name.
func ParseRegion(name string) (Region, error) {
	switch name {
	case "ntsc", "":
		return RegionNTSC, nil
	case "pal":
		return RegionPAL, nil
	case "dual":
		return RegionDual, nil
	default:
		return 0, fmt.Errorf("unsupported machine '%s'", name)
	}
}

func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "ntsc"
	case RegionPAL:
		return "pal"
	case RegionDual:
		return "dual"
	default:
		return fmt.Sprintf("region %d", uint8(r))
	}
}

// Header is the header of an NSF file.
type Header struct {
	TotalSongs   uint8
	StartingSong uint8

	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16

	Title     string
	Artist    string
	Copyright string

	SpeedNTSC uint16 // play call period in microseconds
	SpeedPAL  uint16
	Banks     [bankCount]uint8 // all zero for files without bank switching

	Region    Region
	SoundChip uint8
}

// PlaySpeed returns the play call period in microseconds for a call rate in Hz.
func PlaySpeed(rate int) uint16 {
	if rate <= 0 {
		return 0
	}
	return uint16(microsecond / rate)
}

// Bytes returns the encoded header.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, magic)
	buf[0x05] = version
	buf[0x06] = h.TotalSongs
	buf[0x07] = h.StartingSong
	binary.LittleEndian.PutUint16(buf[0x08:], h.LoadAddress)
	binary.LittleEndian.PutUint16(buf[0x0A:], h.InitAddress)
	binary.LittleEndian.PutUint16(buf[0x0C:], h.PlayAddress)
	putText(buf[0x0E:0x0E+textSize], h.Title)
	putText(buf[0x2E:0x2E+textSize], h.Artist)
	putText(buf[0x4E:0x4E+textSize], h.Copyright)
	binary.LittleEndian.PutUint16(buf[0x6E:], h.SpeedNTSC)
	copy(buf[0x70:0x78], h.Banks[:])
	binary.LittleEndian.PutUint16(buf[0x78:], h.SpeedPAL)
	buf[0x7A] = byte(h.Region)
	buf[0x7B] = h.SoundChip
	return buf
}

// putText copies a zero terminated string, cutting it to fit.
func putText(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	clear(dst[n:])
}

// BankSwitchedBanks returns the initial bank table of a bank switched file:
// banks 0 to 6 are mapped in order and the last page holds the last bank.
func BankSwitchedBanks(lastBank int) [bankCount]uint8 {
	var banks [bankCount]uint8
	for i := range bankCount {
		banks[i] = uint8(i)
	}
	banks[bankCount-1] = uint8(lastBank)
	return banks
}

// INESHeader returns the header of a mapper 0 ROM image with the given
// number of 16 KiB PRG and 8 KiB CHR banks.
func INESHeader(prgBanks, chrBanks uint8) []byte {
	control1, control2 := cartridge.ControlBytes(0, 0, 0, false)
	header := make([]byte, INESHeaderSize)
	copy(header, "NES\x1A")
	header[4] = prgBanks
	header[5] = chrBanks
	header[6] = control1
	header[7] = control2
	return header
}
