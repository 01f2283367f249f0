// Package transport tracks the sample-accurate playback clock described
// in spec §4.4: steady_time in samples since engine start and
// playhead_beat derived from bpm and sample rate.
package transport

// Clock advances steady_time every block and derives beats-per-sample
// from the current bpm.
type Clock struct {
	sampleRate float64
	steadyTime int64
}

// NewClock creates a clock for the given device sample rate.
func NewClock(sampleRate float64) *Clock {
	return &Clock{sampleRate: sampleRate}
}

// BeatsPerSample returns bpm / 60 / sample_rate.
func (c *Clock) BeatsPerSample(bpm float64) float64 {
	return bpm / 60 / c.sampleRate
}

// SteadyTime returns samples elapsed since engine start.
func (c *Clock) SteadyTime() int64 { return c.steadyTime }

// Advance moves steady_time forward by frames and returns the beat delta
// for those frames at the given bpm, for the caller to add to
// playhead_beat.
func (c *Clock) Advance(frames int, bpm float64) (beatDelta float64) {
	beatDelta = float64(frames) * c.BeatsPerSample(bpm)
	c.steadyTime += int64(frames)
	return beatDelta
}

// Reset zeros steady_time, used when the engine is rebuilt or restarted.
func (c *Clock) Reset() { c.steadyTime = 0 }
