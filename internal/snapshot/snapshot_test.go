package snapshot

import (
	"testing"

	"github.com/launchcore/engine/internal/session"
)

func TestCopyFromTruncatesNotesAndCountsDrop(t *testing.T) {
	limits := testLimits()
	s := New(limits)
	model := session.NewModel(limits.TrackCount, limits.SceneCount)

	notes := make([]session.Note, limits.MaxNotesPerClip+3)
	for i := range notes {
		notes[i] = session.Note{Pitch: uint8(i), Start: float64(i)}
	}
	model.Slots[0][0].Clip.Notes = notes

	var drop OverflowCounters
	s.CopyFrom(model, noRefs, &drop)

	if got := len(s.Tracks[0][0].Notes); got != limits.MaxNotesPerClip {
		t.Fatalf("truncated notes = %d, want %d", got, limits.MaxNotesPerClip)
	}
	if n, _, _ := drop.Snapshot(); n != 3 {
		t.Fatalf("NotesTruncated = %d, want 3", n)
	}
}

func TestCopyFromTruncatesAutomationLanesAndPoints(t *testing.T) {
	limits := testLimits()
	s := New(limits)
	model := session.NewModel(limits.TrackCount, limits.SceneCount)

	lanes := make([]session.AutomationLane, limits.MaxAutomationLanes+1)
	for i := range lanes {
		points := make([]session.AutomationPoint, limits.MaxAutomationPoints+2)
		lanes[i] = session.AutomationLane{ParamID: uint32(i), Points: points}
	}
	model.Slots[0][0].Clip.Automation = lanes

	var drop OverflowCounters
	s.CopyFrom(model, noRefs, &drop)

	if got := len(s.Tracks[0][0].Automation); got != limits.MaxAutomationLanes {
		t.Fatalf("truncated lanes = %d, want %d", got, limits.MaxAutomationLanes)
	}
	for _, lane := range s.Tracks[0][0].Automation {
		if len(lane.Points) != limits.MaxAutomationPoints {
			t.Fatalf("lane %d has %d points, want %d", lane.ParamID, len(lane.Points), limits.MaxAutomationPoints)
		}
	}
	_, lanesDropped, pointsDropped := drop.Snapshot()
	if lanesDropped != 1 {
		t.Fatalf("AutomationLanesTruncated = %d, want 1", lanesDropped)
	}
	if pointsDropped == 0 {
		t.Fatal("AutomationPointsTruncated should be nonzero")
	}
}

func TestCopyFromClearsSlotsBeyondModelSize(t *testing.T) {
	limits := testLimits()
	limits.TrackCount = 2
	limits.SceneCount = 2
	s := New(limits)
	model := session.NewModel(1, 1) // smaller than the snapshot's limits

	var drop OverflowCounters
	s.CopyFrom(model, noRefs, &drop)

	if s.Track[1].Volume != 0 {
		t.Fatal("track beyond model size should be zeroed")
	}
	if len(s.Tracks[1][0].Notes) != 0 {
		t.Fatal("clip view beyond model size should be empty")
	}
}
