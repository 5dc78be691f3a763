package driver

const (
	stubInit    = 14
	stubPlay    = 19
	stubVibrato = 20
)

// Stub returns a silent driver. Init loads the address of the vibrato table
// and returns, play returns immediately. It is used when no driver image is
// configured and keeps the music data layout of a real driver.
func Stub() *Driver {
	code := make([]byte, stubVibrato+VibratoTableSize+songAddressSize)
	copy(code[InitOffset:], []byte{
		0x4C, stubInit, 0x00, // jmp init
		0x4C, stubPlay, 0x00, // jmp play
		0xA9, 0x00, // lda #<vibrato
		0xA2, 0x00, // ldx #>vibrato
		0x60, // rts
		0x60, // rts
	})

	return &Driver{
		Name: "stub",
		Code: code,
		Relocs: []Reloc{
			{Offset: InitOffset + 1, Kind: RelocWord},
			{Offset: PlayOffset + 1, Kind: RelocWord},
			{Offset: stubInit + 1, Kind: RelocLow, Value: stubVibrato},
			{Offset: stubInit + 3, Kind: RelocHigh, Value: stubVibrato},
		},
		VibratoOffset: stubVibrato,
	}
}
