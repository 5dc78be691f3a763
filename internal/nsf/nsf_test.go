package nsf

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
)

func TestHeader_Bytes(t *testing.T) {
	h := Header{
		TotalSongs:   3,
		StartingSong: 1,
		LoadAddress:  0x8000,
		InitAddress:  0x8008,
		PlayAddress:  0x800B,
		Title:        "Title",
		Artist:       strings.Repeat("a", 40),
		SpeedNTSC:    PlaySpeed(60),
		SpeedPAL:     PlaySpeed(50),
		Banks:        BankSwitchedBanks(9),
		Region:       RegionDual,
	}

	buf := h.Bytes()
	assert.Len(t, buf, HeaderSize)
	assert.Equal(t, "NESM\x1A", string(buf[:5]))
	assert.Equal(t, byte(1), buf[5])
	assert.Equal(t, byte(3), buf[6])
	assert.Equal(t, byte(1), buf[7])
	assert.Equal(t, uint16(0x8000), binary.LittleEndian.Uint16(buf[0x08:]))
	assert.Equal(t, uint16(0x8008), binary.LittleEndian.Uint16(buf[0x0A:]))
	assert.Equal(t, uint16(0x800B), binary.LittleEndian.Uint16(buf[0x0C:]))
	assert.Equal(t, "Title\x00", string(buf[0x0E:0x14]))
	assert.Equal(t, strings.Repeat("a", 31)+"\x00", string(buf[0x2E:0x4E]))
	assert.Equal(t, uint16(16666), binary.LittleEndian.Uint16(buf[0x6E:]))
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 9}, buf[0x70:0x78])
	assert.Equal(t, uint16(20000), binary.LittleEndian.Uint16(buf[0x78:]))
	assert.Equal(t, byte(RegionDual), buf[0x7A])
	assert.Equal(t, byte(0), buf[0x7B])
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		name    string
		want    Region
		wantErr bool
	}{
		{name: "ntsc", want: RegionNTSC},
		{name: "pal", want: RegionPAL},
		{name: "dual", want: RegionDual},
		{name: "secam", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, err := ParseRegion(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, region)
			assert.Equal(t, tt.name, region.String())
		})
	}
}

func TestINESHeader(t *testing.T) {
	prg := bytes.Repeat([]byte{0xEA}, 2*0x4000)
	rom := append(INESHeader(2, 0), prg...)
	assert.Equal(t, []byte{0x4E, 0x45, 0x53, 0x1A, 0x02, 0x00}, rom[:6])

	cart, err := cartridge.LoadFile(bytes.NewReader(rom))
	assert.NoError(t, err)
	assert.Len(t, cart.PRG, len(prg))
	assert.Equal(t, byte(0), cart.Mapper)
}
