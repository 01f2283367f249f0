package transport

import "testing"

func TestBeatsPerSample(t *testing.T) {
	c := NewClock(48000)
	got := c.BeatsPerSample(120)
	want := 120.0 / 60 / 48000
	if got != want {
		t.Fatalf("BeatsPerSample(120) = %v, want %v", got, want)
	}
}

func TestAdvanceAccumulatesSteadyTime(t *testing.T) {
	c := NewClock(48000)
	c.Advance(512, 120)
	c.Advance(512, 120)
	if got := c.SteadyTime(); got != 1024 {
		t.Fatalf("SteadyTime() = %d, want 1024", got)
	}
}

func TestAdvanceReturnsBeatDelta(t *testing.T) {
	c := NewClock(48000)
	delta := c.Advance(24000, 120) // half a second at 120bpm = 1 beat
	if delta < 0.999 || delta > 1.001 {
		t.Fatalf("Advance beat delta = %v, want ~1.0", delta)
	}
}

func TestResetZeroesSteadyTime(t *testing.T) {
	c := NewClock(48000)
	c.Advance(1000, 120)
	c.Reset()
	if got := c.SteadyTime(); got != 0 {
		t.Fatalf("SteadyTime() after Reset = %d, want 0", got)
	}
}
