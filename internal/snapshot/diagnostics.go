package snapshot

import "sync/atomic"

// OverflowCounters accumulates saturating diagnostics for snapshot
// truncation, drained by the UI thread per spec §7's "Snapshot overflow"
// taxonomy entry.
type OverflowCounters struct {
	NotesTruncated            atomic.Uint64
	AutomationLanesTruncated  atomic.Uint64
	AutomationPointsTruncated atomic.Uint64
}

// Snapshot returns a point-in-time copy of the counters.
func (c *OverflowCounters) Snapshot() (notes, lanes, points uint64) {
	return c.NotesTruncated.Load(), c.AutomationLanesTruncated.Load(), c.AutomationPointsTruncated.Load()
}
