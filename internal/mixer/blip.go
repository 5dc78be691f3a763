package mixer

import (
	"math"
)

const (
	preShift  = 32
	timeBits  = preShift + 20
	timeUnit  = uint64(1) << timeBits
	fracBits  = timeBits - preShift
	phaseBits = 5
	phases    = 1 << phaseBits

	halfWidth   = 8
	kernelWidth = 2 * halfWidth
	bufExtra    = kernelWidth + 2

	deltaBits = 15
	deltaUnit = 1 << deltaBits

	maxSample = math.MaxInt16
	minSample = math.MinInt16
)

// Buffer is a band-limited step synthesis buffer. Amplitude deltas are added
// at clock times, and each delta is spread over the neighbouring samples by
// a windowed sinc kernel. Reading integrates the deltas into samples.
type Buffer struct {
	factor    uint64 // samples per clock in time units
	offset    uint64 // fractional sample position of the frame start
	avail     int
	size      int
	integ     int64
	bassShift uint

	sampleRate float64
	highCut    float64
	highDamp   float64

	kernel [phases + 1][kernelWidth]int32
	buf    []int32
}

// NewBuffer returns a buffer that holds up to size samples.
func NewBuffer(size int) *Buffer {
	b := &Buffer{
		size:      size,
		buf:       make([]int32, size+bufExtra),
		bassShift: 31,
	}
	b.SetRates(3579545, 44100)
	return b
}

// Size returns the capacity of the buffer in samples.
func (b *Buffer) Size() int { return b.size }

// SetRates sets the input clock rate and the output sample rate and clears
// the buffer.
func (b *Buffer) SetRates(clockRate, sampleRate float64) {
	factor := float64(timeUnit) * sampleRate / clockRate
	b.factor = uint64(math.Ceil(factor))
	if b.sampleRate != sampleRate {
		b.sampleRate = sampleRate
		b.buildKernel()
	}
	b.Clear()
}

// SetBass sets the cutoff frequency of the leaky integrator that removes
// low frequencies on read. A frequency of 0 disables the filter.
func (b *Buffer) SetBass(frequency int) {
	shift := uint(31)
	if frequency > 0 && b.sampleRate > 0 {
		shift = 13
		f := (int64(frequency) << 16) / int64(b.sampleRate)
		for {
			f >>= 1
			if f == 0 {
				break
			}
			shift--
			if shift == 0 {
				break
			}
		}
	}
	b.bassShift = shift
}

// SetTreble sets the frequency above which the output is attenuated by
// damp decibels. A cutoff of 0 keeps the full band up to Nyquist.
func (b *Buffer) SetTreble(cutoff, damp float64) {
	if cutoff == b.highCut && damp == b.highDamp {
		return
	}
	b.highCut = cutoff
	b.highDamp = damp
	b.buildKernel()
}

// Clear removes all samples and pending deltas.
func (b *Buffer) Clear() {
	b.offset = b.factor / 2
	b.avail = 0
	b.integ = 0
	clear(b.buf)
}

// AddDelta adds an amplitude change at the given clock time of the current frame.
func (b *Buffer) AddDelta(time uint64, delta int32) {
	if delta == 0 {
		return
	}

	fixed := (time*b.factor + b.offset) >> preShift
	pos := b.avail + int(fixed>>fracBits)
	if pos < 0 || pos+kernelWidth > len(b.buf) {
		return
	}

	phase := (fixed >> (fracBits - phaseBits)) & (phases - 1)
	interp := int64(fixed & (deltaUnit - 1))
	second := int32((int64(delta) * interp) >> deltaBits)
	first := delta - second

	in := &b.kernel[phase]
	next := &b.kernel[phase+1]
	out := b.buf[pos : pos+kernelWidth]
	for i := range out {
		out[i] += in[i]*first + next[i]*second
	}
}

// EndFrame ends the current time frame at the given clock time. The samples
// of the frame become available for reading and new deltas are relative to
// the start of the next frame.
func (b *Buffer) EndFrame(clocks uint64) {
	off := clocks*b.factor + b.offset
	b.avail += int(off >> timeBits)
	b.offset = off & (timeUnit - 1)
	if b.avail > b.size {
		b.avail = b.size
	}
}

// SamplesAvailable returns the number of samples that can be read.
func (b *Buffer) SamplesAvailable() int { return b.avail }

// ReadSamples reads up to count samples into out and removes them from the
// buffer. In stereo mode every other element of out is written, so that two
// buffers can fill an interleaved stereo stream. It returns the number of
// samples read.
func (b *Buffer) ReadSamples(out []int16, count int, stereo bool) int {
	step := 1
	if stereo {
		step = 2
	}
	count = min(count, b.avail, (len(out)+step-1)/step)
	if count <= 0 {
		return 0
	}

	sum := b.integ
	for i := range count {
		s := sum >> deltaBits
		s = max(minSample, min(maxSample, s))
		out[i*step] = int16(s)
		sum += int64(b.buf[i])
		sum -= sum >> b.bassShift
	}
	b.integ = sum

	b.removeSamples(count)
	return count
}

func (b *Buffer) removeSamples(count int) {
	remain := b.avail + bufExtra - count
	b.avail -= count
	copy(b.buf, b.buf[count:count+remain])
	clear(b.buf[remain:])
}

// buildKernel computes the step kernel for every phase. The kernel is a
// Blackman windowed sinc low pass at Nyquist, blended with a second low pass
// at the treble cutoff when treble damping is set.
func (b *Buffer) buildKernel() {
	if b.sampleRate <= 0 {
		return
	}

	const nyquist = 0.5 * 0.999
	gain := 1.0
	cut := nyquist
	if b.highCut > 0 && b.highDamp > 0 {
		gain = math.Pow(10, -b.highDamp/20)
		cut = min(b.highCut/b.sampleRate, nyquist)
	}

	var taps [kernelWidth]float64
	for p := range phases + 1 {
		frac := float64(p) / phases
		sum := 0.0
		for i := range kernelWidth {
			x := float64(i-halfWidth) - frac + 1
			v := gain*lowPass(x, nyquist) + (1-gain)*lowPass(x, cut)
			taps[i] = v * blackman(x)
			sum += taps[i]
		}

		total := int32(0)
		center := 0
		for i := range kernelWidth {
			v := int32(math.Round(taps[i] / sum * deltaUnit))
			b.kernel[p][i] = v
			total += v
			if v > b.kernel[p][center] {
				center = i
			}
		}
		// rounding residue goes to the largest tap, a step must settle exactly
		b.kernel[p][center] += deltaUnit - total
	}
}

func lowPass(x, cutoff float64) float64 {
	if x == 0 {
		return 2 * cutoff
	}
	return math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
}

func blackman(x float64) float64 {
	if x <= -halfWidth || x >= halfWidth {
		return 0
	}
	a := math.Pi * x / halfWidth
	return 0.42 + 0.5*math.Cos(a) + 0.08*math.Cos(2*a)
}
