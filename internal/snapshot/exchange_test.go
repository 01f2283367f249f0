package snapshot

import (
	"testing"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/session"
)

func testLimits() config.Limits {
	return config.Limits{
		TrackCount:          1,
		SceneCount:          1,
		MaxFxSlots:          1,
		MaxNotesPerClip:     8,
		MaxAutomationLanes:  2,
		MaxAutomationPoints: 4,
		MaxBlock:            64,
	}
}

func noRefs(track int) (PluginRef, []PluginRef) { return PluginRef{}, nil }

func TestPublishThenBeginProcessObservesNewSnapshot(t *testing.T) {
	limits := testLimits()
	ex := NewExchange(limits)
	model := session.NewModel(limits.TrackCount, limits.SceneCount)
	model.Transport.Bpm = 140

	ex.Publish(model, noRefs)

	handle := ex.BeginProcess()
	defer handle.End()
	if got := handle.Snapshot().Transport.Bpm; got != 140 {
		t.Fatalf("Transport.Bpm = %v, want 140", got)
	}
}

func TestBeginProcessNeverObservesAPartialPublish(t *testing.T) {
	limits := testLimits()
	ex := NewExchange(limits)
	model := session.NewModel(limits.TrackCount, limits.SceneCount)

	model.Transport.Bpm = 90
	model.Tracks[0].Volume = 0.5
	ex.Publish(model, noRefs)

	model.Transport.Bpm = 200
	model.Tracks[0].Volume = 1.5
	ex.Publish(model, noRefs)

	handle := ex.BeginProcess()
	snap := handle.Snapshot()
	bpm, vol := snap.Transport.Bpm, snap.Track[0].Volume
	handle.End()

	if bpm == 200 && vol != 1.5 || bpm == 90 && vol != 0.5 {
		t.Fatalf("observed a mixed snapshot: bpm=%v volume=%v", bpm, vol)
	}
}

func TestBeginAndEndRebuildToggleRebuilding(t *testing.T) {
	limits := testLimits()
	ex := NewExchange(limits)
	if ex.Rebuilding() {
		t.Fatal("Rebuilding() should start false")
	}
	ex.BeginRebuild()
	if !ex.Rebuilding() {
		t.Fatal("Rebuilding() should be true after BeginRebuild")
	}
	ex.EndRebuild()
	if ex.Rebuilding() {
		t.Fatal("Rebuilding() should be false after EndRebuild")
	}
}
