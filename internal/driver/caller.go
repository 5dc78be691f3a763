package driver

import "encoding/binary"

// CallerSize is the size of the NES reset caller including the vectors.
const CallerSize = 31

// CallerAddress is the address of the NES reset caller, the vectors end at
// the last byte of the address space.
const CallerAddress = 0x10000 - CallerSize

const (
	callerLoop = 17
	callerNMI  = 20
	callerIRQ  = 24
)

// NESCaller returns the code that turns a driver into a NES program: reset
// initializes the driver for song 0 and enables the NMI, the NMI calls play.
func NESCaller(initAddress, playAddress uint16) []byte {
	code := []byte{
		// reset
		0x78,       // sei
		0xD8,       // cld
		0xA2, 0xFF, // ldx #$FF
		0x9A,       // txs
		0xA9, 0x00, // lda #0
		0xA2, 0x00, // ldx #0
		0x20, 0x00, 0x00, // jsr init
		0xA9, 0x80, // lda #$80
		0x8D, 0x00, 0x20, // sta PPUCTRL
		0x4C, 0x00, 0x00, // jmp *

		// nmi
		0x20, 0x00, 0x00, // jsr play
		0x40, // rti

		// irq
		0x40, // rti
	}
	binary.LittleEndian.PutUint16(code[10:], initAddress)
	binary.LittleEndian.PutUint16(code[callerLoop+1:], CallerAddress+callerLoop)
	binary.LittleEndian.PutUint16(code[callerNMI+1:], playAddress)

	code = binary.LittleEndian.AppendUint16(code, CallerAddress+callerNMI)
	code = binary.LittleEndian.AppendUint16(code, CallerAddress)
	code = binary.LittleEndian.AppendUint16(code, CallerAddress+callerIRQ)
	return code
}
