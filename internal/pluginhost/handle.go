package pluginhost

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is a read-only-from-the-audio-thread pointer to a loaded plugin
// instance. The UI thread owns mutation (Activate/Deactivate/Destroy);
// the audio thread only calls StartProcessing/Process/StopProcessing and
// may read Started/NeedStart.
type Handle struct {
	ID       uuid.UUID
	PluginID string

	abi ABI
	inst Instance

	started   atomic.Bool
	needStart atomic.Bool // set by UI after Activate, cleared by audio thread

	broken atomic.Bool // set after a load/activate failure; node reverts to silence
}

// newHandle wraps inst for plugin pluginID, not yet marked for starting.
func newHandle(abi ABI, inst Instance, pluginID string) *Handle {
	return &Handle{
		ID:       uuid.New(),
		PluginID: pluginID,
		abi:      abi,
		inst:     inst,
	}
}

// MarkNeedsStart is called by the UI thread after Activate to request
// that the audio thread call StartProcessing on its next entry to the
// owning node. The flag is set with an atomic store.
func (h *Handle) MarkNeedsStart() {
	h.needStart.Store(true)
}

// Broken reports whether this handle failed to load/activate and should
// be treated as a pass-through silence producer.
func (h *Handle) Broken() bool { return h.broken.Load() }

// Started reports whether StartProcessing has been called since the last
// activation.
func (h *Handle) Started() bool { return h.started.Load() }

// EnsureStarted is called by the audio thread at the top of Process. If
// NeedStart is set, it clears the flag and calls StartProcessing exactly
// once; StartProcessing itself is idempotent per (de)activation, so a
// racing double-clear is harmless.
func (h *Handle) EnsureStarted() error {
	if !h.needStart.CompareAndSwap(true, false) {
		return nil
	}
	if err := h.abi.StartProcessing(h.inst); err != nil {
		return err
	}
	h.started.Store(true)
	return nil
}

// ABI returns the underlying ABI implementation, for Process/StopProcessing
// calls from the graph's audio-thread code.
func (h *Handle) ABI() ABI { return h.abi }

// Instance returns the opaque plugin instance for ABI calls.
func (h *Handle) Instance() Instance { return h.inst }

// StopAndDeactivate is called from the UI thread during teardown, after
// the caller has confirmed no audio callback is in flight.
func (h *Handle) StopAndDeactivate() error {
	if h.started.Load() {
		if err := h.abi.StopProcessing(h.inst); err != nil {
			return err
		}
		h.started.Store(false)
	}
	return h.abi.Deactivate(h.inst)
}
