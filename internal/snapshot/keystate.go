package snapshot

import "sync/atomic"

// KeyState is the fine-grained live key-state table from spec §4.1: a
// [track][128]bool grid updated by UI/MIDI input and read by the
// scheduler. Each pitch is an independent atomic.Bool, so writes across
// tracks may tear relative to each other but never within a single
// pitch - acceptable because MIDI input is inherently best-effort.
type KeyState struct {
	tracks [][128]atomic.Bool
}

// NewKeyState allocates a key-state table for trackCount tracks.
func NewKeyState(trackCount int) *KeyState {
	return &KeyState{tracks: make([][128]atomic.Bool, trackCount)}
}

// Set records a key-down (down=true) or key-up (down=false) edge for
// pitch on track. Safe to call from the MIDI input source concurrently
// with the scheduler's Get calls.
func (k *KeyState) Set(track int, pitch uint8, down bool) {
	if track < 0 || track >= len(k.tracks) {
		return
	}
	k.tracks[track][pitch].Store(down)
}

// Get reads the current state of pitch on track.
func (k *KeyState) Get(track int, pitch uint8) bool {
	if track < 0 || track >= len(k.tracks) {
		return false
	}
	return k.tracks[track][pitch].Load()
}

// Snapshot copies the current state of one track's 128 pitches into out,
// used by the scheduler once per block to diff against its own previous
// snapshot for edge detection.
func (k *KeyState) Snapshot(track int, out *[128]bool) {
	if track < 0 || track >= len(k.tracks) {
		*out = [128]bool{}
		return
	}
	for p := 0; p < 128; p++ {
		out[p] = k.tracks[track][p].Load()
	}
}
