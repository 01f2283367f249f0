package snapshot

import (
	"sync/atomic"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/session"
)

// Exchange is the single-producer (UI) / single-consumer (audio)
// double-buffer from spec §4.1. The consumer always observes either the
// last-published snapshot in its entirety or the prior one, never a mix
// of fields from different publishes.
type Exchange struct {
	buffers     [2]*Snapshot
	activeIndex atomic.Int32 // which buffer is the current front
	processing  atomic.Int32 // non-zero while the audio thread is inside a callback
	rebuilding  atomic.Int32 // non-zero while the UI thread is rebuilding the graph

	drop OverflowCounters
}

// NewExchange preallocates both snapshot buffers sized by limits.
func NewExchange(limits config.Limits) *Exchange {
	return &Exchange{
		buffers: [2]*Snapshot{New(limits), New(limits)},
	}
}

// Diagnostics exposes the overflow counters for the UI thread to drain.
func (e *Exchange) Diagnostics() *OverflowCounters { return &e.drop }

// Publish is called on the UI thread. It busy-waits for any in-flight
// audio callback to finish, copies model into the back buffer, then
// flips the active index with release ordering.
func (e *Exchange) Publish(model *session.Model, pluginRefs func(track int) (instrument PluginRef, fx []PluginRef)) {
	for e.processing.Load() != 0 {
		// busy-wait: the audio thread never blocks, so this is bounded
		// by one callback's duration.
	}
	next := 1 - e.activeIndex.Load()
	e.buffers[next].CopyFrom(model, pluginRefs, &e.drop)
	e.activeIndex.Store(next)
}

// SwapPlugin replaces a single plugin pointer in the currently-active
// snapshot's shadow copy without waiting for the next full publish cycle,
// per the plugin-swap path: the front snapshot's content is copied into
// the back buffer with the one reference substituted, then published.
func (e *Exchange) SwapPlugin(apply func(s *Snapshot)) {
	for e.processing.Load() != 0 {
	}
	active := e.activeIndex.Load()
	next := 1 - active
	copySnapshotShallow(e.buffers[next], e.buffers[active])
	apply(e.buffers[next])
	e.activeIndex.Store(next)
}

func copySnapshotShallow(dst, src *Snapshot) {
	dst.Recording = src.Recording
	dst.Transport = src.Transport
	for t := range src.Track {
		fx := dst.Track[t].FxSlots
		dst.Track[t] = src.Track[t]
		dst.Track[t].FxSlots = fx
		copy(fx, src.Track[t].FxSlots)
	}
	for t := range src.Tracks {
		copy(dst.Tracks[t], src.Tracks[t])
	}
}

// Handle is the audio thread's guard around one callback. Construct it
// with BeginProcess and release it with End when the callback completes.
type Handle struct {
	ex   *Exchange
	snap *Snapshot
}

// BeginProcess marks the start of an audio callback and returns a handle
// exposing the snapshot to use for its duration. The audio thread never
// blocks here.
func (e *Exchange) BeginProcess() Handle {
	e.processing.Add(1)
	idx := e.activeIndex.Load()
	return Handle{ex: e, snap: e.buffers[idx]}
}

// Snapshot returns the snapshot acquired for this callback.
func (h Handle) Snapshot() *Snapshot { return h.snap }

// End marks the end of an audio callback.
func (h Handle) End() { h.ex.processing.Add(-1) }

// Rebuilding reports whether a graph rebuild is in progress; the audio
// callback observing this should emit silence for the buffer.
func (e *Exchange) Rebuilding() bool { return e.rebuilding.Load() != 0 }

// BeginRebuild is called on the UI thread before reconstructing the
// graph: it sets the rebuilding flag with release ordering and spin-waits
// until no audio callback is in flight.
func (e *Exchange) BeginRebuild() {
	e.rebuilding.Store(1)
	for e.processing.Load() != 0 {
	}
}

// EndRebuild clears the rebuilding flag once the new graph is ready.
func (e *Exchange) EndRebuild() {
	e.rebuilding.Store(0)
}
