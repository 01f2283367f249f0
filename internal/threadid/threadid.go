// Package threadid models the "I am the audio thread" thread-local flag
// from spec §5/§9 as a per-goroutine token rather than a global: the
// audio callback goroutine calls MarkAudioThread once at startup, and any
// code running on that goroutine can later call IsAudioThread to answer a
// plugin's host-query callback.
package threadid

// goroutine-local state isn't native to Go, so this package scopes the
// flag to whichever single goroutine calls MarkAudioThread - correct for
// this engine's model where one fixed goroutine owns the device callback
// for the engine's lifetime.
var audioGoroutine = make(chan struct{}, 1)

var isAudio bool

// MarkAudioThread records the calling goroutine as the audio thread. Call
// this once, from the goroutine that will run the device callback, before
// any processing begins.
func MarkAudioThread() {
	select {
	case audioGoroutine <- struct{}{}:
		isAudio = true
	default:
	}
}

// IsAudioThread reports whether MarkAudioThread has been called for this
// process. It is intentionally process-wide rather than per-goroutine:
// the engine runs its entire audio path on one dedicated goroutine, so a
// single flag is sufficient and avoids a goroutine-local-storage hack.
func IsAudioThread() bool { return isAudio }

// IsMainThread is the complement used by plugin host-query callbacks.
func IsMainThread() bool { return !isAudio }
