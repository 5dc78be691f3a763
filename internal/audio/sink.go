package audio

// Sink receives the samples of every rendered frame.
type Sink interface {
	FlushBuffer(samples []int16, count int)
}

// Sinks passes every frame to all contained sinks in order.
type Sinks []Sink

// FlushBuffer passes the frame to all sinks.
func (s Sinks) FlushBuffer(samples []int16, count int) {
	for _, sink := range s {
		sink.FlushBuffer(samples, count)
	}
}

// Discard drops all samples.
type Discard struct{}

// FlushBuffer drops the samples.
func (Discard) FlushBuffer([]int16, int) {}

// Recorder keeps a copy of all samples in memory.
type Recorder struct {
	samples []int16
}

// FlushBuffer appends the samples of a frame.
func (r *Recorder) FlushBuffer(samples []int16, _ int) {
	r.samples = append(r.samples, samples...)
}

// Samples returns all recorded samples, stereo samples are interleaved.
func (r *Recorder) Samples() []int16 {
	return r.samples
}
