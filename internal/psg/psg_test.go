package psg

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

type mixEvent struct {
	channel   ChannelID
	amplitude int32
	time      uint32
}

type recordingMixer struct {
	events  []mixEvent
	routing map[ChannelID][2]bool
}

func (r *recordingMixer) AddValue(channel ChannelID, amplitude, _ int32, frameTime uint32) {
	r.events = append(r.events, mixEvent{channel: channel, amplitude: amplitude, time: frameTime})
}

func (r *recordingMixer) SetRouting(channel ChannelID, left, right bool) {
	if r.routing == nil {
		r.routing = map[ChannelID][2]bool{}
	}
	r.routing[channel] = [2]bool{left, right}
}

func (r *recordingMixer) channelEvents(channel ChannelID) []mixEvent {
	var events []mixEvent
	for _, ev := range r.events {
		if ev.channel == channel {
			events = append(events, ev)
		}
	}
	return events
}

func setPeriod(s *Square, period uint16) {
	s.Write(0, uint8(period&0x0F))
	s.Write(1, uint8(period>>4))
}

func TestSquare_ToggleRate(t *testing.T) {
	for period := uint16(1); period <= 0x3FF; period++ {
		mixer := &recordingMixer{}
		sq := NewSquare(mixer, Square1)
		setPeriod(sq, period)
		sq.Write(2, 0)

		halfPeriod := uint32(period) << 4
		sq.Process(4 * halfPeriod)

		assert.Len(t, mixer.events, 5)
		for i, ev := range mixer.events {
			assert.Equal(t, uint32(i)*halfPeriod, ev.time)

			switch {
			case period <= CutoffPeriod:
				assert.Equal(t, int32(0), ev.amplitude)
			case i%2 == 0:
				assert.Equal(t, VolumeTable[0], ev.amplitude)
			default:
				assert.Equal(t, int32(0), ev.amplitude)
			}
		}
	}
}

func TestSquare_Attenuation(t *testing.T) {
	for atten := range uint8(16) {
		mixer := &recordingMixer{}
		sq := NewSquare(mixer, Square2)
		setPeriod(sq, 0x100)
		sq.Write(2, atten)
		sq.Process(0)

		assert.Len(t, mixer.events, 1)
		assert.Equal(t, VolumeTable[atten], mixer.events[0].amplitude)
	}
	assert.Equal(t, int32(0), VolumeTable[15])
}

func TestSquare_SilentAttenuation(t *testing.T) {
	for _, period := range []uint16{0, 1, 6, 7, 0x55, 0x3FF} {
		mixer := &recordingMixer{}
		sq := NewSquare(mixer, Square1)
		setPeriod(sq, period)
		sq.Write(2, 0x0F)
		sq.Process(100000)

		for _, ev := range mixer.events {
			assert.Equal(t, int32(0), ev.amplitude)
		}
	}
}

func TestSquare_CarriesRemainingTime(t *testing.T) {
	mixer := &recordingMixer{}
	sq := NewSquare(mixer, Square1)
	setPeriod(sq, 0x10)
	sq.Write(2, 0)

	// split budgets emit the same events as one large budget
	for range 64 {
		sq.Process(100)
	}

	reference := &recordingMixer{}
	ref := NewSquare(reference, Square1)
	setPeriod(ref, 0x10)
	ref.Write(2, 0)
	ref.Process(6400)

	assert.Equal(t, reference.events, mixer.events)
	assert.Equal(t, uint32(6400), sq.time)
}

func TestSquare_WriteIgnoresUnknownSubAddress(t *testing.T) {
	sq := NewSquare(&recordingMixer{}, Square1)
	setPeriod(sq, 0x2A5)
	sq.Write(2, 3)
	sq.Write(7, 0xFF)

	assert.Equal(t, uint16(0x2A5), sq.Period())
	assert.Equal(t, uint8(3), sq.Attenuation())
}

func referenceLFSR(state uint16, short bool, shifts int) uint16 {
	for range shifts {
		var feedback uint16
		if short {
			feedback = state & 1
		} else {
			feedback = (state ^ state>>3) & 1
		}
		state = state>>1 | feedback<<15
	}
	return state
}

func TestNoise_WhiteNoisePolynomial(t *testing.T) {
	mixer := &recordingMixer{}
	n := NewNoise(mixer)
	n.Write(0, uint8(NoiseDiv512))
	n.Write(2, 0)

	const shifts = 100
	n.Process(uint32(2*shifts-1) * (0x10 << 4))

	events := mixer.channelEvents(Noise1)
	assert.Len(t, events, shifts)
	assert.Equal(t, referenceLFSR(LFSRSeed, false, shifts), n.LFSR())

	state := uint16(LFSRSeed)
	for _, ev := range events {
		state = referenceLFSR(state, false, 1)
		assert.Equal(t, VolumeTable[0]*int32(state&1), ev.amplitude)
	}
}

func TestNoise_PeriodicNoise(t *testing.T) {
	mixer := &recordingMixer{}
	n := NewNoise(mixer)
	n.Write(0, 0x04|uint8(NoiseDiv1024))
	n.Write(2, 2)

	n.Process(31 * (0x20 << 4))

	events := mixer.channelEvents(Noise1)
	assert.Len(t, events, 16)
	assert.Equal(t, uint16(LFSRSeed), n.LFSR())

	var audible int
	for _, ev := range events {
		if ev.amplitude != 0 {
			audible++
			assert.Equal(t, VolumeTable[2], ev.amplitude)
		}
	}
	assert.Equal(t, 1, audible)
}

func TestNoise_Deterministic(t *testing.T) {
	run := func() []mixEvent {
		mixer := &recordingMixer{}
		chip := New(mixer)
		chip.Write(NoiseControlPort, uint8(NoiseSquare3))
		chip.Write(NoiseAttenuationPort, 4)
		chip.Write(4, 0x07)
		chip.Write(PeriodHighPort, 0x02)
		for _, cycles := range []uint32{100, 1000, 12345, 7, 99999, 0, 3} {
			chip.Process(cycles)
		}
		return mixer.channelEvents(Noise1)
	}

	first := run()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run())
}

func TestNoise_ControlWriteReseeds(t *testing.T) {
	n := NewNoise(&recordingMixer{})
	n.Write(2, 0)
	n.Process(50000)
	assert.True(t, n.LFSR() != LFSRSeed)

	n.Write(0, uint8(NoiseDiv2048))
	assert.Equal(t, uint16(LFSRSeed), n.LFSR())
	mode, short := n.Mode()
	assert.Equal(t, NoiseDiv2048, mode)
	assert.False(t, short)
}

func TestNoise_Square3PeriodZero(t *testing.T) {
	n := NewNoise(&recordingMixer{})
	n.Write(0, uint8(NoiseSquare3))
	assert.Equal(t, uint16(1), n.period())

	n.CachePeriod(0x123)
	assert.Equal(t, uint16(0x123), n.period())
}
