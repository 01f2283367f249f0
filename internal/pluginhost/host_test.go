package pluginhost_test

import (
	"testing"

	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/internal/pluginhost/fixture"
)

func TestLoadInstrumentEnsureStartedIsIdempotent(t *testing.T) {
	host := pluginhost.NewHost(fixture.New(), nil)
	handle := host.LoadInstrument(0, "", "fixture.synth", 48000, 1, 512)
	if handle.Broken() {
		t.Fatal("handle is Broken() after a successful load")
	}
	if handle.Started() {
		t.Fatal("handle should not be Started() before EnsureStarted")
	}
	if err := handle.EnsureStarted(); err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if !handle.Started() {
		t.Fatal("handle should be Started() after EnsureStarted")
	}
	// A second call with no new MarkNeedsStart must be a no-op, not an error.
	if err := handle.EnsureStarted(); err != nil {
		t.Fatalf("second EnsureStarted: %v", err)
	}
}

func TestLoadUnknownPluginIDMarksHandleBroken(t *testing.T) {
	host := pluginhost.NewHost(fixture.New(), nil)
	handle := host.LoadInstrument(0, "", "fixture.nonexistent", 48000, 1, 512)
	if !handle.Broken() {
		t.Fatal("handle should be Broken() after loading an unknown plugin ID")
	}
}

func TestHostTracksInstrumentAndFxSeparately(t *testing.T) {
	host := pluginhost.NewHost(fixture.New(), nil)
	instr := host.LoadInstrument(0, "", "fixture.synth", 48000, 1, 512)
	fx := host.LoadFx(0, 0, "", "fixture.gain", 48000, 1, 512)

	if host.Instrument(0) != instr {
		t.Fatal("Instrument(0) did not return the loaded instrument handle")
	}
	if host.Fx(0, 0) != fx {
		t.Fatal("Fx(0, 0) did not return the loaded fx handle")
	}
	if host.Instrument(1) != nil {
		t.Fatal("Instrument(1) should be nil: nothing loaded there")
	}
}

func TestUnloadStopsAndDeactivates(t *testing.T) {
	host := pluginhost.NewHost(fixture.New(), nil)
	handle := host.LoadInstrument(0, "", "fixture.synth", 48000, 1, 512)
	if err := handle.EnsureStarted(); err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if err := host.Unload(handle); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if handle.Started() {
		t.Fatal("handle should not be Started() after Unload")
	}
}
