package graph

import "github.com/launchcore/engine/internal/midi"

// PortKind distinguishes audio ports from event ports.
type PortKind uint8

const (
	PortAudio PortKind = iota
	PortEvent
)

// AudioPort is a stereo L/R buffer pair of length maxBlock, owned by the
// node that produces it and read by every downstream edge through a
// pointer fixed up at graph build time.
type AudioPort struct {
	L, R []float32
}

// NewAudioPort preallocates a port sized to maxBlock frames.
func NewAudioPort(maxBlock int) *AudioPort {
	return &AudioPort{L: make([]float32, maxBlock), R: make([]float32, maxBlock)}
}

// Frames returns the first n samples of L and R.
func (p *AudioPort) Frames(n int) (l, r []float32) {
	return p.L[:n], p.R[:n]
}

// Clear zeros the first n samples.
func (p *AudioPort) Clear(n int) {
	l, r := p.Frames(n)
	for i := range l {
		l[i] = 0
		r[i] = 0
	}
}

// AddFrom sums src's first n samples into p, used by the Mixer node.
func (p *AudioPort) AddFrom(src *AudioPort, n int) {
	for i := 0; i < n; i++ {
		p.L[i] += src.L[i]
		p.R[i] += src.R[i]
	}
}

// EventPort is a bounded, ordered list of TimedEvents valid for the
// current block, cleared at block start. Overflow is dropped with a
// saturating counter per spec §4.3.
type EventPort struct {
	capacity int
	events   []midi.Event
	dropped  uint64
}

// NewEventPort preallocates an event port with the given capacity.
func NewEventPort(capacity int) *EventPort {
	return &EventPort{capacity: capacity, events: make([]midi.Event, 0, capacity)}
}

// Append adds an event, reporting false (and incrementing the drop
// counter) if capacity has been exceeded.
func (p *EventPort) Append(e midi.Event) bool {
	if len(p.events) >= p.capacity {
		p.dropped++
		return false
	}
	p.events = append(p.events, e)
	return true
}

// Events returns the events queued for this block, in non-decreasing
// FrameOffset order (callers are responsible for appending in order or
// sorting the returned slice in place, as the scheduler does).
func (p *EventPort) Events() []midi.Event { return p.events }

// Clear empties the port for the next block without shrinking capacity.
func (p *EventPort) Clear() { p.events = p.events[:0] }

// Dropped returns the cumulative overflow count for diagnostics.
func (p *EventPort) Dropped() uint64 { return p.dropped }
