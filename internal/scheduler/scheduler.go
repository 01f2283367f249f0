// Package scheduler implements the per-block responsibilities from spec
// §4.6: quantize-boundary clip transitions, clip loop wrap, clip-to-event
// conversion, live-keyboard recording, and automation-to-event conversion.
// It runs entirely on the audio thread, immediately before Graph.Process.
//
// Clip-state transitions and finalized recorded notes are audio-thread
// decisions about UI-owned data (SessionModel), so rather than mutate the
// model directly - which only the UI thread may do - the scheduler
// reports them through bounded lock-free queues that the UI thread drains
// once per frame and applies, after which they become visible to the
// audio thread again through the next published snapshot.
package scheduler

import (
	"sort"
	"sync/atomic"

	"github.com/launchcore/engine/internal/graph"
	"github.com/launchcore/engine/internal/midi"
	"github.com/launchcore/engine/internal/session"
	"github.com/launchcore/engine/internal/snapshot"
	"github.com/launchcore/engine/internal/transport"
)

// Transition reports a clip-slot state change the scheduler decided at a
// quantize boundary.
type Transition struct {
	Track, Scene int
	NewState     session.ClipState
	AtBeat       float64
}

// RecordedNote reports a note the scheduler finalized from live input
// while recording, ready to be appended to the owning piano clip.
type RecordedNote struct {
	Track, Scene int
	Note         session.Note
}

type slotKey struct{ track, scene int }

// Scheduler holds the audio-thread-exclusive scratch state that persists
// across blocks: the playhead, each slot's hanging-note set, the previous
// live-key snapshot for edge detection, and held-note start times while
// recording.
type Scheduler struct {
	clock        *transport.Clock
	playheadBeat float64

	hanging map[slotKey]map[uint8]float64 // pitch -> absolute end beat

	prevKeys             [128]bool
	armedTrackOfPrevKeys int

	recHeld       [128]float64
	recHeldActive [128]bool

	transitions *ring[Transition]
	recorded    *ring[RecordedNote]

	transitionsDropped atomic.Uint64
	recordedDropped    atomic.Uint64
}

// New creates a scheduler driven by clock.
func New(clock *transport.Clock) *Scheduler {
	return &Scheduler{
		clock:                clock,
		hanging:              make(map[slotKey]map[uint8]float64),
		armedTrackOfPrevKeys: -1,
		transitions:          newRing[Transition](64),
		recorded:             newRing[RecordedNote](256),
	}
}

// PlayheadBeat returns the scheduler's current playhead position.
func (s *Scheduler) PlayheadBeat() float64 { return s.playheadBeat }

// DrainTransitions is called by the UI thread once per frame to collect
// clip-state transitions the scheduler decided since the last drain.
func (s *Scheduler) DrainTransitions(out []Transition) []Transition {
	return s.transitions.Drain(out)
}

// DrainRecordedNotes is called by the UI thread once per frame to collect
// notes finalized from live recording since the last drain.
func (s *Scheduler) DrainRecordedNotes(out []RecordedNote) []RecordedNote {
	return s.recorded.Drain(out)
}

// Diagnostics returns the cumulative count of transitions and recorded
// notes dropped because the UI thread fell behind draining them.
func (s *Scheduler) Diagnostics() (transitionsDropped, recordedDropped uint64) {
	return s.transitionsDropped.Load(), s.recordedDropped.Load()
}

func (s *Scheduler) pushTransition(t Transition) {
	if !s.transitions.Push(t) {
		s.transitionsDropped.Add(1)
	}
}

func (s *Scheduler) pushRecorded(n RecordedNote) {
	if !s.recorded.Push(n) {
		s.recordedDropped.Add(1)
	}
}

func (s *Scheduler) hangingFor(track, scene int) map[uint8]float64 {
	key := slotKey{track, scene}
	h, ok := s.hanging[key]
	if !ok {
		h = make(map[uint8]float64)
		s.hanging[key] = h
	}
	return h
}

// window is a contiguous beat range within one block, used to express the
// (at most a handful, for a short looping clip) sub-ranges a block is
// split into when the playhead crosses the clip's loop point.
type window struct {
	startBeat, endBeat float64 // beats, within [0, loopLen)
	baseOffset         int     // frame offset where this sub-window begins
	frameCount         int     // the full block's frame count, for clamping
	bps                float64
}

// Populate is the single per-block entry point: it advances the
// transport, detects quantize-boundary transitions, and fills every
// NoteSource's output event port for this chunk. g's NoteSource ports
// must already be cleared by the caller (AudioEngine, via
// graph.ClearEventPorts) before this is called.
func (s *Scheduler) Populate(snap *snapshot.Snapshot, g *graph.Graph, keys *snapshot.KeyState, frames int) {
	trackCount := g.TrackCount()
	if trackCount > len(snap.Track) {
		trackCount = len(snap.Track)
	}

	s.handleLiveKeyboard(snap, g, keys, trackCount)

	if snap.Transport.Playing {
		bpm := snap.Transport.Bpm
		bps := s.clock.BeatsPerSample(bpm)

		prevPlayhead := s.playheadBeat
		q := snap.Transport.QuantizeIdx.Beats()
		crossedBoundary := q > 0 && floorDiv(prevPlayhead, q) < floorDiv(prevPlayhead+float64(frames)*bps, q)

		if crossedBoundary && s.applyQuantizeTransitions(g, snap, trackCount, prevPlayhead) {
			// All tracks share one quantize grid, so a newly launched clip
			// re-locks to clip-relative beat zero at the same instant;
			// approximated here as the whole block restarting at zero
			// rather than splitting at the exact boundary frame. Clips
			// already playing are unaffected by boundaries where nothing
			// was promoted.
			s.playheadBeat = 0
		}

		for t := 0; t < trackCount; t++ {
			sceneCount := len(snap.Tracks[t])
			for sc := 0; sc < sceneCount; sc++ {
				clip := snap.Tracks[t][sc]
				switch clip.State {
				case session.ClipPlaying, session.ClipRecording:
					s.emitClipEvents(g, t, sc, clip, bps, frames)
				}
			}
		}

		s.advancePlayhead(snap, trackCount, frames, bps)
	}

	for t := 0; t < trackCount; t++ {
		sortPort(g.InstrumentEventPort(t))
		for slot := range snap.Track[t].FxSlots {
			sortPort(g.FxEventPort(t, slot))
		}
	}
}

func sortPort(port *graph.EventPort) {
	events := port.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].Less(events[j]) })
}

// advancePlayhead moves the playhead forward, wrapping modulo the loop
// length of whichever clip is current, per invariant 1. Loop length is
// taken from the first playing/recording slot found; in the common case
// of a single playing clip across the session this is exact, and degrades
// gracefully (no wrap) when nothing is playing.
func (s *Scheduler) advancePlayhead(snap *snapshot.Snapshot, trackCount int, frames int, bps float64) {
	loopLen := s.currentLoopLength(snap, trackCount)
	s.playheadBeat += float64(frames) * bps
	if loopLen > 0 {
		for s.playheadBeat >= loopLen {
			s.playheadBeat -= loopLen
		}
	}
}

func (s *Scheduler) currentLoopLength(snap *snapshot.Snapshot, trackCount int) float64 {
	for t := 0; t < trackCount; t++ {
		for sc := range snap.Tracks[t] {
			clip := snap.Tracks[t][sc]
			if clip.State == session.ClipPlaying || clip.State == session.ClipRecording {
				if clip.LengthBeats > 0 {
					return clip.LengthBeats
				}
			}
		}
	}
	return 0
}

func floorDiv(v, q float64) int64 {
	d := v / q
	f := int64(d)
	if d < 0 && float64(f) != d {
		f--
	}
	return f
}

// applyQuantizeTransitions advances queued slots to playing/recording and
// stops whatever else was active on the same track, enforcing invariant 3
// (at most one playing|recording clip per track). It reports whether any
// track actually promoted a clip, so the caller knows whether the shared
// playhead should re-lock to clip-relative zero.
func (s *Scheduler) applyQuantizeTransitions(g *graph.Graph, snap *snapshot.Snapshot, trackCount int, boundaryBeat float64) (promoted bool) {
	for t := 0; t < trackCount; t++ {
		activating := -1
		var activatingState session.ClipState
		for sc := range snap.Tracks[t] {
			switch snap.Tracks[t][sc].State {
			case session.ClipQueued:
				activating, activatingState = sc, session.ClipPlaying
			case session.ClipQueuedRecording:
				activating, activatingState = sc, session.ClipRecording
			}
		}
		if activating == -1 {
			continue
		}
		promoted = true
		for sc := range snap.Tracks[t] {
			if sc == activating {
				continue
			}
			if snap.Tracks[t][sc].State == session.ClipPlaying || snap.Tracks[t][sc].State == session.ClipRecording {
				s.flushHangingNotes(g, t, sc)
				s.pushTransition(Transition{Track: t, Scene: sc, NewState: session.ClipStopped, AtBeat: boundaryBeat})
			}
		}
		s.pushTransition(Transition{Track: t, Scene: activating, NewState: activatingState, AtBeat: boundaryBeat})
	}
	return promoted
}

// flushHangingNotes emits an all-notes-off burst at offset 0 into the
// track's instrument NoteSource for every pitch still sounding from a
// stopping clip, per the cancellation rule in §4.6.
func (s *Scheduler) flushHangingNotes(g *graph.Graph, track, scene int) {
	key := slotKey{track, scene}
	h, ok := s.hanging[key]
	if !ok || len(h) == 0 {
		return
	}
	port := g.InstrumentEventPort(track)
	for pitch := range h {
		port.Append(midi.Event{FrameOffset: 0, Source: int32(scene), Payload: midi.NoteOff{Key: pitch}})
	}
	delete(s.hanging, key)
}

// emitClipEvents walks clip.Notes and the slot's hanging set, emitting
// NoteOn/NoteOff pairs that fall within this block (splitting the block
// into sub-windows when the loop wraps) and ParamValue automation events
// at breakpoints.
func (s *Scheduler) emitClipEvents(g *graph.Graph, track, scene int, clip snapshot.ClipView, bps float64, frames int) {
	loopLen := clip.LengthBeats
	if loopLen <= 0 {
		return
	}

	port := g.InstrumentEventPort(track)
	hanging := s.hangingFor(track, scene)

	windows := s.splitWindows(loopLen, bps, frames)

	for _, w := range windows {
		// Close out hanging notes whose end falls in this sub-window first,
		// so a NoteOff never appears after a later NoteOn at the same pitch.
		for pitch, end := range hanging {
			if end >= w.startBeat && end < w.endBeat {
				offset := w.baseOffset + clampOffset(beatsToFrame(end-w.startBeat, bps), w.frameCount)
				port.Append(midi.Event{FrameOffset: int32(offset), Source: int32(scene), Payload: midi.NoteOff{Key: pitch}})
				delete(hanging, pitch)
			}
		}

		for _, note := range clip.Notes {
			if note.Start < w.startBeat || note.Start >= w.endBeat {
				continue
			}
			offset := w.baseOffset + clampOffset(beatsToFrame(note.Start-w.startBeat, bps), w.frameCount)
			pitch := note.Pitch
			port.Append(midi.Event{FrameOffset: int32(offset), Source: int32(scene), Payload: midi.NoteOn{Key: pitch, Velocity: float32(note.Velocity)}})
			end := note.Start + note.Duration
			if end > loopLen {
				end = loopLen
			}
			if end >= w.startBeat && end < w.endBeat {
				endOffset := w.baseOffset + clampOffset(beatsToFrame(end-w.startBeat, bps), w.frameCount)
				port.Append(midi.Event{FrameOffset: int32(endOffset), Source: int32(scene), Payload: midi.NoteOff{Key: pitch}})
			} else {
				hanging[pitch] = end
			}
		}
	}

	s.emitAutomation(g, track, scene, clip, windows)
}

// emitAutomation delivers ParamValue events for every breakpoint that
// falls within this block's window(s), to the instrument's event port
// (FxSlotIndex == -1) or the targeted FX slot's dedicated NoteSource
// otherwise (FX note sources never carry note events, only automation).
func (s *Scheduler) emitAutomation(g *graph.Graph, track, scene int, clip snapshot.ClipView, windows []window) {
	for _, lane := range clip.Automation {
		var port *graph.EventPort
		if lane.FxSlotIndex < 0 {
			port = g.InstrumentEventPort(track)
		} else {
			port = g.FxEventPort(track, lane.FxSlotIndex)
		}
		if port == nil {
			continue
		}
		for _, w := range windows {
			for _, pt := range lane.Points {
				if pt.Time < w.startBeat || pt.Time >= w.endBeat {
					continue
				}
				offset := w.baseOffset + clampOffset(beatsToFrame(pt.Time-w.startBeat, w.bps), w.frameCount)
				port.Append(midi.Event{FrameOffset: int32(offset), Source: int32(scene), Payload: midi.ParamValue{ParamID: lane.ParamID, Value: pt.Value}})
			}
		}
	}
}

// splitWindows divides [playheadBeat, playheadBeat+frames*bps) into one or
// more beat ranges, wrapping at loopLen. Bounds the number of wraps so a
// clip shorter than one block can't spin the loop indefinitely.
func (s *Scheduler) splitWindows(loopLen, bps float64, frames int) []window {
	start := s.playheadBeat
	if loopLen > 0 {
		for start >= loopLen {
			start -= loopLen
		}
	}
	remainingFrames := frames
	base := 0
	var out []window

	for iter := 0; iter < 8 && remainingFrames > 0; iter++ {
		framesToLoopEnd := remainingFrames
		if bps > 0 && loopLen-start < float64(remainingFrames)*bps {
			framesToLoopEnd = int((loopLen - start) / bps)
			if framesToLoopEnd < 0 {
				framesToLoopEnd = 0
			}
			if framesToLoopEnd > remainingFrames {
				framesToLoopEnd = remainingFrames
			}
		}
		end := start + float64(framesToLoopEnd)*bps
		out = append(out, window{startBeat: start, endBeat: end, baseOffset: base, frameCount: frames, bps: bps})

		base += framesToLoopEnd
		remainingFrames -= framesToLoopEnd
		start = 0 // wrapped
		if framesToLoopEnd == 0 {
			break // degenerate zero-length remainder; avoid spinning
		}
	}
	return out
}

func beatsToFrame(beats, bps float64) int {
	if bps <= 0 {
		return 0
	}
	return int(beats/bps + 0.5) // round
}

func clampOffset(offset, frameCount int) int {
	if offset < 0 {
		return 0
	}
	if offset >= frameCount {
		return frameCount - 1
	}
	return offset
}

// handleLiveKeyboard diffs the armed track's key-state against the
// previous block's, emitting immediate NoteOn/NoteOff events for
// monitoring and, while the armed slot is recording, tracking held-note
// start times to finalize a RecordedNote on release.
func (s *Scheduler) handleLiveKeyboard(snap *snapshot.Snapshot, g *graph.Graph, keys *snapshot.KeyState, trackCount int) {
	armed := snap.Recording.ArmedTrack
	if armed < 0 || armed >= trackCount || keys == nil {
		s.armedTrackOfPrevKeys = -1
		return
	}
	if s.armedTrackOfPrevKeys != armed {
		keys.Snapshot(armed, &s.prevKeys)
		s.armedTrackOfPrevKeys = armed
		s.recHeldActive = [128]bool{}
		return // skip the first block after (re)arming to avoid a false edge burst
	}

	var cur [128]bool
	keys.Snapshot(armed, &cur)

	armedScene := snap.Recording.ArmedScene
	recording := armedScene >= 0 && armedScene < len(snap.Tracks[armed]) &&
		snap.Tracks[armed][armedScene].State == session.ClipRecording

	port := g.InstrumentEventPort(armed)
	for pitch := 0; pitch < 128; pitch++ {
		switch {
		case cur[pitch] && !s.prevKeys[pitch]:
			port.Append(midi.Event{FrameOffset: 0, Source: -1, Payload: midi.NoteOn{Key: uint8(pitch), Velocity: 1}})
			if recording {
				s.recHeldActive[pitch] = true
				s.recHeld[pitch] = s.playheadBeat
			}
		case !cur[pitch] && s.prevKeys[pitch]:
			port.Append(midi.Event{FrameOffset: 0, Source: -1, Payload: midi.NoteOff{Key: uint8(pitch)}})
			if recording && s.recHeldActive[pitch] {
				s.recHeldActive[pitch] = false
				dur := s.playheadBeat - s.recHeld[pitch]
				if dur < 0 {
					dur = 0
				}
				s.pushRecorded(RecordedNote{
					Track: armed,
					Scene: armedScene,
					Note:  session.Note{Pitch: uint8(pitch), Start: s.recHeld[pitch], Duration: dur, Velocity: 1},
				})
			}
		}
	}
	s.prevKeys = cur
}
