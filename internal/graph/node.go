package graph

// NodeID is a dense index into the graph's node arena.
type NodeID int32

// Kind tags the six node variants from spec §3. The graph dispatches on
// Kind with a plain switch in Process - no virtual calls - per the
// "static dispatch table" design note.
type Kind uint8

const (
	KindNoteSource Kind = iota
	KindSynth
	KindFx
	KindGain
	KindMixer
	KindMaster
)

func (k Kind) String() string {
	switch k {
	case KindNoteSource:
		return "NoteSource"
	case KindSynth:
		return "Synth"
	case KindFx:
		return "Fx"
	case KindGain:
		return "Gain"
	case KindMixer:
		return "Mixer"
	case KindMaster:
		return "Master"
	default:
		return "Unknown"
	}
}

// Node is one unit of graph processing. Fields not meaningful for a given
// Kind are left at their zero value; this flat layout keeps per-node
// memory access dense and avoids an interface-typed variant.
type Node struct {
	ID   NodeID
	Kind Kind

	Track        int // owning track; -1 for Mixer/Master
	FxSlot       int // owning FX slot for Fx/its NoteSource; -1 otherwise
	IsInstrument bool // true for the per-track instrument NoteSource

	// Audio wiring. AudioIn holds pointers fixed up at build time to the
	// upstream nodes' AudioOut buffers; Mixer has one entry per track,
	// everything else has at most one.
	AudioIn  []*AudioPort
	AudioOut *AudioPort

	// Event wiring. EventIn is the upstream NoteSource's output port for
	// Synth/Fx nodes; EventOut is populated by the scheduler for
	// NoteSource nodes and is nil for every other kind, so a plugin's own
	// output events are not forwarded.
	EventIn  *EventPort
	EventOut *EventPort
}
