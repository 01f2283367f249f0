package pluginhost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/launchcore/engine/internal/jobqueue"
	"github.com/launchcore/engine/internal/threadid"
)

// Host owns every plugin handle on the UI thread: one instrument slot and
// N FX slots per track, following the init -> create -> activate sequence
// from spec §6.1. It never touches the audio thread's data directly; the
// caller publishes the resulting handles into the next StateSnapshot
// (engine.Controller does so with a full Publish).
type Host struct {
	mu   sync.Mutex
	abi  ABI
	log  *slog.Logger
	jobs *jobqueue.Queue // optional; nil means RequestExec runs tasks inline

	instruments map[int]*Handle    // by track index
	fx          map[[2]int]*Handle // by [track][fxSlot]
}

// NewHost wraps a concrete ABI implementation (the dynamic-library loader
// boundary; pluginhost/fixture provides one for tests).
func NewHost(abi ABI, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		abi:         abi,
		log:         log,
		instruments: make(map[int]*Handle),
		fx:          make(map[[2]int]*Handle),
	}
}

// SetJobQueue wires a worker pool to back RequestExec's thread_pool.exec
// fanout (§6.2); without one, RequestExec runs every task inline on the
// calling thread, which is correct but forgoes parallelism.
func (h *Host) SetJobQueue(q *jobqueue.Queue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = q
}

// load runs init -> create -> activate and returns a Handle, or a handle
// marked Broken if any step fails, per the "Plugin load/activate failure"
// taxonomy entry in spec §7.
func (h *Host) load(libraryPath, pluginID string, sampleRate float64, minBlock, maxBlock int) *Handle {
	if err := h.abi.Init(libraryPath); err != nil {
		h.log.Warn("pluginhost: init failed", "plugin", pluginID, "err", err)
		broken := newHandle(h.abi, nil, pluginID)
		broken.broken.Store(true)
		return broken
	}

	inst, err := h.abi.Create(engineHostCallbacks{jobs: h.jobs}, pluginID)
	if err != nil {
		h.log.Warn("pluginhost: create failed", "plugin", pluginID, "err", err)
		broken := newHandle(h.abi, nil, pluginID)
		broken.broken.Store(true)
		return broken
	}

	if err := h.abi.Activate(inst, sampleRate, minBlock, maxBlock); err != nil {
		h.log.Warn("pluginhost: activate failed", "plugin", pluginID, "err", err)
		broken := newHandle(h.abi, inst, pluginID)
		broken.broken.Store(true)
		return broken
	}

	handle := newHandle(h.abi, inst, pluginID)
	handle.MarkNeedsStart()
	return handle
}

// LoadInstrument loads and activates the instrument plugin for a track.
func (h *Host) LoadInstrument(track int, libraryPath, pluginID string, sampleRate float64, minBlock, maxBlock int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle := h.load(libraryPath, pluginID, sampleRate, minBlock, maxBlock)
	h.instruments[track] = handle
	return handle
}

// LoadFx loads and activates an FX plugin for a track's FX slot.
func (h *Host) LoadFx(track, slot int, libraryPath, pluginID string, sampleRate float64, minBlock, maxBlock int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle := h.load(libraryPath, pluginID, sampleRate, minBlock, maxBlock)
	h.fx[[2]int{track, slot}] = handle
	return handle
}

// Instrument returns the current instrument handle for track, or nil.
func (h *Host) Instrument(track int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instruments[track]
}

// Fx returns the current FX handle for track/slot, or nil.
func (h *Host) Fx(track, slot int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fx[[2]int{track, slot}]
}

// Unload tears down a handle: the caller must have already confirmed no
// audio callback is in flight (the stop-device path in spec §5).
func (h *Host) Unload(handle *Handle) error {
	if handle == nil || handle.inst == nil {
		return nil
	}
	if err := handle.StopAndDeactivate(); err != nil {
		return fmt.Errorf("pluginhost: unload %s: %w", handle.PluginID, err)
	}
	return h.abi.Destroy(handle.inst)
}

// engineHostCallbacks answers a plugin's thread-identity queries from the
// process-wide flag threadid tracks, rather than a fixed answer: the same
// HostCallbacks value is handed to a plugin at Create time (UI thread) and
// queried again from inside Process (audio thread). RequestExec fans a
// plugin's parallel work out over jobs when one is configured.
type engineHostCallbacks struct {
	jobs *jobqueue.Queue
}

func (engineHostCallbacks) IsMainThread() bool  { return threadid.IsMainThread() }
func (engineHostCallbacks) IsAudioThread() bool { return threadid.IsAudioThread() }
func (c engineHostCallbacks) RequestExec(taskCount uint32, exec func(taskIndex uint32)) {
	if c.jobs == nil {
		for i := uint32(0); i < taskCount; i++ {
			exec(i)
		}
		return
	}
	c.jobs.ExecuteAll(context.Background(), taskCount, exec)
}
