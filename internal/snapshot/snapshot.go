// Package snapshot implements the lock-free UI-to-audio state handoff
// described in spec §4.1: a double-buffered StateSnapshot value plus a
// fine-grained live-key-state table, both safe for a single producer (the
// UI thread) and a single consumer (the audio thread) without the
// consumer ever blocking.
package snapshot

import (
	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/session"
)

// TrackView is the audio thread's read-only view of one track.
type TrackView struct {
	Volume     float64
	Pan        float64
	Mute       bool
	Solo       bool
	Armed      bool
	Instrument PluginRef
	FxSlots    []PluginRef // len == Limits.MaxFxSlots
}

// PluginRef is a read-only pointer to a plugin handle, owned by the
// PluginHost adapter on the UI thread; the audio thread may read through
// it but never destroys it (lifetime is guaranteed by the publish
// protocol in §4.1's plugin-swap path).
type PluginRef struct {
	Handle any // concrete type: *pluginhost.Handle; any avoids an import cycle
	Bound  bool
}

// ClipView is the audio thread's read-only view of one clip slot.
type ClipView struct {
	State       session.ClipState
	LengthBeats float64
	Notes       []session.Note
	Automation  []session.AutomationLane
}

// Snapshot is the fixed-shape value copied from the UI thread's SessionModel.
// The per-track and per-slot slices are allocated once by New and
// overwritten in place by CopyFrom. Clip note and automation-point slices
// are not copied: they share the model's backing arrays. The acquire path
// performs no allocation.
type Snapshot struct {
	Limits config.Limits

	Tracks [][]ClipView // Tracks[track][scene]
	Track  []TrackView  // per-track mixer state

	Recording session.RecordingState
	Transport session.TransportState
}

// New allocates a snapshot shaped by limits. Two of these are preallocated
// by Exchange and never grown afterward.
func New(limits config.Limits) *Snapshot {
	s := &Snapshot{
		Limits: limits,
		Tracks: make([][]ClipView, limits.TrackCount),
		Track:  make([]TrackView, limits.TrackCount),
	}
	for t := range s.Tracks {
		s.Tracks[t] = make([]ClipView, limits.SceneCount)
		s.Track[t].FxSlots = make([]PluginRef, limits.MaxFxSlots)
	}
	return s
}

// CopyFrom overwrites s in place with model's track, slot, recording and
// transport state and the current plugin bindings, truncating any clip
// content that exceeds the configured limits (invariant 5) and
// incrementing drop for diagnostics. Note and automation-point slices
// point into the model's own arrays; each slot that has automation lanes
// gets a newly allocated lane slice on every call.
func (s *Snapshot) CopyFrom(model *session.Model, pluginRefs func(track int) (instrument PluginRef, fx []PluginRef), drop *OverflowCounters) {
	s.Recording = model.Recording
	s.Transport = model.Transport

	trackCount := len(model.Tracks)
	if trackCount > s.Limits.TrackCount {
		trackCount = s.Limits.TrackCount
	}

	for t := 0; t < trackCount; t++ {
		mt := model.Tracks[t]
		s.Track[t].Volume = mt.Volume
		s.Track[t].Pan = mt.Pan
		s.Track[t].Mute = mt.Mute
		s.Track[t].Solo = mt.Solo
		s.Track[t].Armed = mt.Armed

		if pluginRefs != nil {
			instr, fx := pluginRefs(t)
			s.Track[t].Instrument = instr
			n := len(fx)
			if n > len(s.Track[t].FxSlots) {
				n = len(s.Track[t].FxSlots)
			}
			copy(s.Track[t].FxSlots, fx[:n])
			for i := n; i < len(s.Track[t].FxSlots); i++ {
				s.Track[t].FxSlots[i] = PluginRef{}
			}
		}

		sceneCount := len(model.Slots[t])
		if sceneCount > s.Limits.SceneCount {
			sceneCount = s.Limits.SceneCount
		}
		for sc := 0; sc < sceneCount; sc++ {
			slot := model.Slots[t][sc]
			view := &s.Tracks[t][sc]
			view.State = slot.State
			view.LengthBeats = slot.LengthBeats
			view.Notes = truncateNotes(slot.Clip.Notes, s.Limits.MaxNotesPerClip, drop)
			view.Automation = truncateAutomation(slot.Clip.Automation, s.Limits.MaxAutomationLanes, s.Limits.MaxAutomationPoints, drop)
		}
		for sc := sceneCount; sc < s.Limits.SceneCount; sc++ {
			s.Tracks[t][sc] = ClipView{}
		}
	}
	for t := trackCount; t < s.Limits.TrackCount; t++ {
		s.Track[t] = TrackView{FxSlots: s.Track[t].FxSlots}
		for sc := range s.Tracks[t] {
			s.Tracks[t][sc] = ClipView{}
		}
	}
}

// truncateNotes applies the tail-drop overflow policy from DESIGN.md's
// resolution of the open question: once the cap is hit, later (tail)
// notes are the ones omitted, keeping clip-start content stable.
func truncateNotes(notes []session.Note, cap int, drop *OverflowCounters) []session.Note {
	if len(notes) <= cap {
		return notes
	}
	if drop != nil {
		drop.NotesTruncated.Add(uint64(len(notes) - cap))
	}
	return notes[:cap]
}

func truncateAutomation(lanes []session.AutomationLane, laneCap, pointCap int, drop *OverflowCounters) []session.AutomationLane {
	n := len(lanes)
	truncatedLanes := n > laneCap
	if truncatedLanes {
		n = laneCap
	}
	out := make([]session.AutomationLane, n)
	for i := 0; i < n; i++ {
		lane := lanes[i]
		if len(lane.Points) > pointCap {
			if drop != nil {
				drop.AutomationPointsTruncated.Add(uint64(len(lane.Points) - pointCap))
			}
			lane.Points = lane.Points[:pointCap]
		}
		out[i] = lane
	}
	if truncatedLanes && drop != nil {
		drop.AutomationLanesTruncated.Add(uint64(len(lanes) - laneCap))
	}
	return out
}
