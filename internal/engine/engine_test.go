package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/graph"
	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/internal/pluginhost/fixture"
	"github.com/launchcore/engine/internal/scheduler"
	"github.com/launchcore/engine/internal/session"
	"github.com/launchcore/engine/internal/snapshot"
	"github.com/launchcore/engine/internal/telemetry"
	"github.com/launchcore/engine/internal/transport"
)

type harness struct {
	model     *session.Model
	exchange  *snapshot.Exchange
	host      *pluginhost.Host
	graph     *graph.Graph
	sched     *scheduler.Scheduler
	clock     *transport.Clock
	keys      *snapshot.KeyState
	controller *Controller
	audio     *AudioEngine
}

func newHarness(t *testing.T, limits config.Limits) *harness {
	t.Helper()

	model := session.NewModel(limits.TrackCount, limits.SceneCount)
	exchange := snapshot.NewExchange(limits)
	host := pluginhost.NewHost(fixture.New(), slog.Default())
	g, err := graph.Build(limits.TrackCount, limits.MaxFxSlots, limits.MaxBlock, config.DefaultEventCapacity)
	require.NoError(t, err)
	clock := transport.NewClock(44100)
	sched := scheduler.New(clock)
	keys := snapshot.NewKeyState(limits.TrackCount)
	profiler := telemetry.NewBlockProfiler(44100, limits.MaxBlock)
	reporter, _ := telemetry.NewChannel()

	controller := NewController(model, exchange, host, sched)
	audio := New(exchange, g, sched, clock, keys, profiler, reporter, limits.MaxBlock, slog.Default())

	return &harness{
		model: model, exchange: exchange, host: host, graph: g,
		sched: sched, clock: clock, keys: keys, controller: controller, audio: audio,
	}
}

func testLimits() config.Limits {
	return config.Limits{TrackCount: 2, SceneCount: 2, MaxFxSlots: 1, MaxBlock: 512, MaxNotesPerClip: 64, MaxAutomationLanes: 4, MaxAutomationPoints: 16}
}

// TestScenarioPlaybackProducesAudio covers scenario #1/#2 from the
// testable-properties table: a playing clip with a bound instrument
// produces non-silent master output.
func TestScenarioPlaybackProducesAudio(t *testing.T) {
	limits := testLimits()
	h := newHarness(t, limits)

	h.host.LoadInstrument(0, "", "fixture.synth", 44100, 1, limits.MaxBlock)
	h.model.Tracks[0].Volume = 1
	h.model.Slots[0][0] = session.ClipSlot{
		State:       session.ClipPlaying,
		LengthBeats: 4,
		Clip: session.PianoClip{
			LengthBeats: 4,
			Notes:       []session.Note{{Pitch: 60, Start: 0, Duration: 2, Velocity: 1}},
		},
	}
	h.model.Transport.Playing = true
	h.model.Transport.Bpm = 120
	h.controller.Publish()

	outL := make([]float32, limits.MaxBlock)
	outR := make([]float32, limits.MaxBlock)
	h.audio.Render(outL, outR, limits.MaxBlock)

	nonZero := false
	for _, v := range outL {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "expected non-silent output while a note sounds on a bound instrument")
}

// TestScenarioUnboundInstrumentIsSilent covers the "no plugin assigned"
// edge case: an unbound instrument slot must render silence, never panic.
func TestScenarioUnboundInstrumentIsSilent(t *testing.T) {
	limits := testLimits()
	h := newHarness(t, limits)

	h.model.Slots[0][0] = session.ClipSlot{
		State:       session.ClipPlaying,
		LengthBeats: 4,
		Clip: session.PianoClip{
			LengthBeats: 4,
			Notes:       []session.Note{{Pitch: 60, Start: 0, Duration: 2, Velocity: 1}},
		},
	}
	h.model.Transport.Playing = true
	h.model.Transport.Bpm = 120
	h.controller.Publish()

	outL := make([]float32, limits.MaxBlock)
	outR := make([]float32, limits.MaxBlock)
	require.NotPanics(t, func() { h.audio.Render(outL, outR, limits.MaxBlock) })

	for _, v := range outL {
		assert.Equal(t, float32(0), v)
	}
}

// TestScenarioMuteSilencesTrack covers the mute/solo testable property:
// a muted track's Gain output must be silent even while its clip plays.
func TestScenarioMuteSilencesTrack(t *testing.T) {
	limits := testLimits()
	h := newHarness(t, limits)

	h.host.LoadInstrument(0, "", "fixture.synth", 44100, 1, limits.MaxBlock)
	h.model.Tracks[0].Mute = true
	h.model.Slots[0][0] = session.ClipSlot{
		State:       session.ClipPlaying,
		LengthBeats: 4,
		Clip: session.PianoClip{
			LengthBeats: 4,
			Notes:       []session.Note{{Pitch: 60, Start: 0, Duration: 2, Velocity: 1}},
		},
	}
	h.model.Transport.Playing = true
	h.model.Transport.Bpm = 120
	h.controller.Publish()

	outL := make([]float32, limits.MaxBlock)
	outR := make([]float32, limits.MaxBlock)
	h.audio.Render(outL, outR, limits.MaxBlock)

	for _, v := range outL {
		assert.Equal(t, float32(0), v, "muted track must contribute silence")
	}
}

// TestScenarioQueuedClipPromotesAtBoundaryAndIsAudible covers scenario #3:
// a queued clip is promoted to playing once its quantize boundary has
// been crossed, and is audible once the controller applies the
// scheduler's reported transition.
func TestScenarioQueuedClipPromotesAtBoundaryAndIsAudible(t *testing.T) {
	limits := testLimits()
	h := newHarness(t, limits)

	h.host.LoadInstrument(0, "", "fixture.synth", 44100, 1, limits.MaxBlock)
	h.model.Slots[0][0] = session.ClipSlot{
		State:       session.ClipQueued,
		LengthBeats: 4,
		Clip: session.PianoClip{
			LengthBeats: 4,
			Notes:       []session.Note{{Pitch: 60, Start: 0, Duration: 4, Velocity: 1}},
		},
	}
	h.model.Tracks[0].Volume = 1
	h.model.Transport.Playing = true
	h.model.Transport.Bpm = 120
	h.model.Transport.QuantizeIdx = session.QuantizeOneBeat
	h.controller.Publish()

	outL := make([]float32, limits.MaxBlock)
	outR := make([]float32, limits.MaxBlock)

	// Render one full beat's worth of blocks to cross the quantize boundary.
	framesPerBeat := 22050 // 0.5s at 120bpm and 44100Hz
	rendered := 0
	for rendered < framesPerBeat+limits.MaxBlock {
		h.audio.Render(outL, outR, limits.MaxBlock)
		rendered += limits.MaxBlock
	}

	h.controller.ApplySchedulerReports()
	require.Equal(t, session.ClipPlaying, h.model.Slots[0][0].State, "queued clip should have been promoted to playing")

	h.audio.Render(outL, outR, limits.MaxBlock)
	nonZero := false
	for _, v := range outL {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "promoted clip should now be audible")
}
