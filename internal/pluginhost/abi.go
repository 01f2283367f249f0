// Package pluginhost coordinates the plugin lifecycle split between the
// UI/main thread (init, activate, destroy) and the audio thread
// (startProcessing, process, stopProcessing) described in spec §4.8/§6.1.
// Dynamic library loading and the concrete PluginABI wire format are
// external collaborators; this package only defines the narrow interface
// a loader must satisfy and the bookkeeping around it.
package pluginhost

import (
	"errors"

	"github.com/launchcore/engine/internal/midi"
)

// ErrPluginUnavailable is returned when a plugin fails to load or
// activate; the caller reverts the owning node to pass-through silence.
var ErrPluginUnavailable = errors.New("pluginhost: plugin unavailable")

// ProcessResult is the plugin's per-call outcome.
type ProcessResult int

const (
	ProcessOK ProcessResult = iota
	ProcessFailed
)

// Instance is an opaque handle to a created plugin instance, returned by
// ABI.Create and passed back into every other ABI call. The concrete type
// is owned by the loader.
type Instance any

// ABI is the narrow subset of the external plugin ABI the core consumes,
// per spec §6.1. A concrete implementation adapts a real dynamic-library
// plugin format (VST3, CLAP, ...); pluginhost/fixture ships a pure-Go
// implementation for tests.
type ABI interface {
	// Init loads the plugin library located at path. Main thread only.
	Init(path string) error
	// Create returns a new plugin instance for pluginID. Main thread only.
	Create(host HostCallbacks, pluginID string) (Instance, error)
	// Activate must precede any Process call. Main thread only.
	Activate(inst Instance, sampleRate float64, minBlock, maxBlock int) error
	// StartProcessing is idempotent per (de)activation. Audio thread only.
	StartProcessing(inst Instance) error
	// Process runs one block. Audio thread only.
	Process(inst Instance, in, out [][]float32, inEvents []midi.Event, outEvents *[]midi.Event, frames int, steadyTime int64) ProcessResult
	// StopProcessing is called before Deactivate. Audio thread only.
	StopProcessing(inst Instance) error
	// Deactivate reverses Activate. Main thread only.
	Deactivate(inst Instance) error
	// Destroy frees the instance. Main thread only.
	Destroy(inst Instance) error
	// GetExtension looks up an opaque capability by id. Any thread.
	GetExtension(inst Instance, id string) (any, bool)
}

// HostCallbacks are the callbacks the core exposes back to a plugin, per
// spec §6.1.
type HostCallbacks interface {
	IsMainThread() bool
	IsAudioThread() bool
	// RequestExec forwards a plugin's internal parallel-work fan-out to
	// the JobQueue external collaborator (spec §6.2).
	RequestExec(taskCount uint32, exec func(taskIndex uint32))
}
