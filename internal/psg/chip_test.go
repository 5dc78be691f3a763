package psg

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

type loggedWrite struct {
	address uint16
	value   uint8
}

type recordingLogger struct {
	writes []loggedWrite
	cycles uint32
}

func (l *recordingLogger) LogWrite(address uint16, value uint8) {
	l.writes = append(l.writes, loggedWrite{address: address, value: value})
}

func (l *recordingLogger) LogCycles(cycles uint32) {
	l.cycles += cycles
}

func TestChip_Reset(t *testing.T) {
	chip := New(&recordingMixer{})

	for i := range 3 {
		assert.Equal(t, uint16(0), chip.Square(i).Period())
		assert.Equal(t, uint8(0x0F), chip.Square(i).Attenuation())
	}
	assert.Equal(t, uint8(0x0F), chip.Noise().Attenuation())
	assert.Equal(t, uint16(LFSRSeed), chip.Noise().LFSR())
	assert.Equal(t, uint8(0xFF), chip.Stereo())
}

func TestChip_Write(t *testing.T) {
	tests := []struct {
		name   string
		writes []loggedWrite
		check  func(t *testing.T, chip *Chip)
	}{
		{
			name:   "period low then high",
			writes: []loggedWrite{{0, 0x0B}, {PeriodHighPort, 0x1A}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				assert.Equal(t, uint16(0x1AB), chip.Square(0).Period())
			},
		},
		{
			name:   "high bits follow the latch",
			writes: []loggedWrite{{0, 0x01}, {2, 0x02}, {PeriodHighPort, 0x3F}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				assert.Equal(t, uint16(0x001), chip.Square(0).Period())
				assert.Equal(t, uint16(0x3F2), chip.Square(1).Period())
			},
		},
		{
			name:   "attenuation",
			writes: []loggedWrite{{1, 0x03}, {3, 0xF5}, {5, 0x0A}, {NoiseAttenuationPort, 0x07}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				assert.Equal(t, uint8(0x03), chip.Square(0).Attenuation())
				assert.Equal(t, uint8(0x05), chip.Square(1).Attenuation())
				assert.Equal(t, uint8(0x0A), chip.Square(2).Attenuation())
				assert.Equal(t, uint8(0x07), chip.Noise().Attenuation())
			},
		},
		{
			name:   "noise control",
			writes: []loggedWrite{{NoiseControlPort, 0xFE}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				mode, short := chip.Noise().Mode()
				assert.Equal(t, NoiseDiv2048, mode)
				assert.True(t, short)
			},
		},
		{
			name:   "square 3 period is cached into the noise channel",
			writes: []loggedWrite{{4, 0x05}, {PeriodHighPort, 0x10}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				assert.Equal(t, uint16(0x105), chip.Noise().ch3Period)
			},
		},
		{
			name:   "square 3 attenuation write refreshes the cache",
			writes: []loggedWrite{{4, 0x09}, {5, 0x00}},
			check: func(t *testing.T, chip *Chip) {
				t.Helper()
				assert.Equal(t, uint16(0x009), chip.Noise().ch3Period)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := New(&recordingMixer{})
			for _, w := range tt.writes {
				chip.Write(w.address, w.value)
			}
			tt.check(t, chip)
		})
	}
}

func TestChip_StereoRouting(t *testing.T) {
	mixer := &recordingMixer{}
	chip := New(mixer)
	chip.Write(StereoPort, 0x9A) // left: square1, noise; right: square2, noise

	assert.Equal(t, uint8(0x9A), chip.Stereo())
	assert.Equal(t, [2]bool{true, false}, mixer.routing[Square1])
	assert.Equal(t, [2]bool{false, true}, mixer.routing[Square2])
	assert.Equal(t, [2]bool{false, false}, mixer.routing[Square3])
	assert.Equal(t, [2]bool{true, true}, mixer.routing[Noise1])

	left, right := chip.Square(0).Routing()
	assert.True(t, left)
	assert.False(t, right)
}

func TestChip_WriteRaw(t *testing.T) {
	chip := New(&recordingMixer{})

	chip.WriteRaw(0x8B) // square 1 tone, low nibble 0xB
	chip.WriteRaw(0x1A) // high bits
	chip.WriteRaw(0xA5) // square 2 tone
	chip.WriteRaw(0x03)
	chip.WriteRaw(0xBC) // square 2 volume
	chip.WriteRaw(0xE5) // noise control
	chip.WriteRaw(0xF2) // noise volume

	assert.Equal(t, uint16(0x1AB), chip.Square(0).Period())
	assert.Equal(t, uint16(0x035), chip.Square(1).Period())
	assert.Equal(t, uint8(0x0C), chip.Square(1).Attenuation())
	mode, short := chip.Noise().Mode()
	assert.Equal(t, NoiseDiv1024, mode)
	assert.True(t, short)
	assert.Equal(t, uint8(0x02), chip.Noise().Attenuation())
}

func TestChip_ProcessAndEndFrame(t *testing.T) {
	mixer := &recordingMixer{}
	chip := New(mixer)
	chip.Write(0, 0x00)
	chip.Write(PeriodHighPort, 0x01) // period 0x10
	chip.Write(1, 0x00)

	chip.Process(0x100 * 3)
	for _, ch := range chip.Channels() {
		assert.Equal(t, uint32(0x300), ch.base().time)
	}

	chip.EndFrame()
	for _, ch := range chip.Channels() {
		assert.Equal(t, uint32(0), ch.base().time)
	}

	events := mixer.channelEvents(Square1)
	assert.Len(t, events, 4)
	assert.Equal(t, VolumeTable[0], events[0].amplitude)
	assert.Equal(t, int32(0), events[1].amplitude)
}

func TestChip_Logger(t *testing.T) {
	logger := &recordingLogger{}
	chip := New(&recordingMixer{})
	chip.SetLogger(logger)

	chip.Write(2, 0x04)
	chip.Process(1234)
	chip.Write(PeriodHighPort, 0x11)

	assert.Equal(t, []loggedWrite{{2, 0x04}, {PeriodHighPort, 0x11}}, logger.writes)
	assert.Equal(t, uint32(1234), logger.cycles)
}

func TestChip_Serialize(t *testing.T) {
	first := &recordingMixer{}
	chip := New(first)
	chip.Write(0, 0x07)
	chip.Write(PeriodHighPort, 0x02)
	chip.Write(1, 0x01)
	chip.Write(NoiseControlPort, 0x03)
	chip.Write(4, 0x0C)
	chip.Write(NoiseAttenuationPort, 0x00)
	chip.Write(StereoPort, 0xF3)
	chip.Process(54321)

	buf := make([]byte, chip.SerializeSize())
	assert.NoError(t, chip.Serialize(buf))

	second := &recordingMixer{}
	restored := New(second)
	assert.NoError(t, restored.Deserialize(buf))
	assert.Equal(t, uint8(0xF3), restored.Stereo())

	chip.EndFrame()
	restored.EndFrame()
	first.events = nil
	chip.Process(20000)
	restored.Process(20000)
	assert.Equal(t, first.events, second.events)

	assert.Error(t, restored.Deserialize(buf[:4]))
	buf[0] = 99
	assert.Error(t, restored.Deserialize(buf))
}
