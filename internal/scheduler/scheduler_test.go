package scheduler

import (
	"testing"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/graph"
	"github.com/launchcore/engine/internal/session"
	"github.com/launchcore/engine/internal/snapshot"
	"github.com/launchcore/engine/internal/transport"
)

func newTestGraph(t *testing.T) (*graph.Graph, config.Limits) {
	t.Helper()
	limits := config.Limits{TrackCount: 1, SceneCount: 1, MaxFxSlots: 1, MaxBlock: 512}
	g, err := graph.Build(limits.TrackCount, limits.MaxFxSlots, limits.MaxBlock, config.DefaultEventCapacity)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	return g, limits
}

func oneNoteSnapshot(limits config.Limits) *snapshot.Snapshot {
	snap := snapshot.New(limits)
	snap.Transport.Playing = true
	snap.Transport.Bpm = 120
	snap.Transport.QuantizeIdx = session.QuantizeOneBeat
	snap.Tracks[0][0] = snapshot.ClipView{
		State:       session.ClipPlaying,
		LengthBeats: 4,
		Notes: []session.Note{
			{Pitch: 60, Start: 0, Duration: 1, Velocity: 1},
		},
	}
	return snap
}

func TestPopulateEmitsNoteOnAndOffWithinBlock(t *testing.T) {
	g, limits := newTestGraph(t)
	snap := oneNoteSnapshot(limits)

	clock := transport.NewClock(44100)
	s := New(clock)

	frames := 44100 // two beats at 120bpm, 1s
	g.ClearEventPorts()
	s.Populate(snap, g, nil, frames)

	events := g.InstrumentEventPort(0).Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events (on+off), got %d: %+v", len(events), events)
	}
	if events[0].FrameOffset > events[1].FrameOffset {
		t.Errorf("events not in non-decreasing offset order: %+v", events)
	}
}

func TestPopulateWrapsAtLoopBoundary(t *testing.T) {
	g, limits := newTestGraph(t)
	snap := oneNoteSnapshot(limits)
	snap.Tracks[0][0].Notes = []session.Note{
		{Pitch: 64, Start: 3.5, Duration: 1, Velocity: 1}, // wraps past the 4-beat loop
	}

	clock := transport.NewClock(44100)
	s := New(clock)
	s.playheadBeat = 3.5

	frames := 22050 // one beat at 120bpm
	g.ClearEventPorts()
	s.Populate(snap, g, nil, frames)

	events := g.InstrumentEventPort(0).Events()
	if len(events) == 0 {
		t.Fatal("expected at least the NoteOn at the block start")
	}
	foundOn := false
	for _, e := range events {
		if e.FrameOffset == 0 {
			foundOn = true
		}
	}
	if !foundOn {
		t.Errorf("expected a NoteOn emitted at the block start (beat 3.5), got %+v", events)
	}
}

func TestQuantizeBoundaryPromotesQueuedClip(t *testing.T) {
	g, limits := newTestGraph(t)
	snap := snapshot.New(limits)
	snap.Transport.Playing = true
	snap.Transport.Bpm = 120
	snap.Transport.QuantizeIdx = session.QuantizeOneBeat
	snap.Tracks[0][0] = snapshot.ClipView{State: session.ClipQueued, LengthBeats: 4}

	clock := transport.NewClock(44100)
	s := New(clock)
	s.playheadBeat = 0.99

	frames := 44100 / 100 // a small slice that crosses beat 1
	g.ClearEventPorts()
	s.Populate(snap, g, nil, frames)

	var transitions []Transition
	transitions = s.DrainTransitions(transitions)
	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	if transitions[0].NewState != session.ClipPlaying {
		t.Errorf("expected ClipPlaying, got %v", transitions[0].NewState)
	}
}

func TestLiveKeyboardFinalizesRecordedNote(t *testing.T) {
	g, limits := newTestGraph(t)
	snap := snapshot.New(limits)
	snap.Recording.ArmedTrack = 0
	snap.Recording.ArmedScene = 0
	snap.Tracks[0][0] = snapshot.ClipView{State: session.ClipRecording, LengthBeats: 4}

	keys := snapshot.NewKeyState(limits.TrackCount)
	clock := transport.NewClock(44100)
	s := New(clock)

	g.ClearEventPorts()
	s.Populate(snap, g, keys, 256) // first block: arms tracking, no edges yet

	keys.Set(0, 60, true)
	g.ClearEventPorts()
	s.Populate(snap, g, keys, 256)

	keys.Set(0, 60, false)
	g.ClearEventPorts()
	s.Populate(snap, g, keys, 256)

	var notes []RecordedNote
	notes = s.DrainRecordedNotes(notes)
	if len(notes) != 1 {
		t.Fatalf("expected 1 recorded note, got %d", len(notes))
	}
	if notes[0].Note.Pitch != 60 {
		t.Errorf("expected pitch 60, got %d", notes[0].Note.Pitch)
	}
}
