// Package engine implements the AudioEngine device-callback orchestration
// from spec §4.7: acquire a snapshot, let the scheduler populate events,
// run the graph, copy the mixed result to the device's output buffers,
// and report render timing - all without allocating or blocking.
package engine

import (
	"log/slog"
	"time"

	"github.com/launchcore/engine/internal/graph"
	"github.com/launchcore/engine/internal/scheduler"
	"github.com/launchcore/engine/internal/snapshot"
	"github.com/launchcore/engine/internal/telemetry"
	"github.com/launchcore/engine/internal/transport"
)

// AudioEngine wires the exchange, scheduler, graph and clock into the
// single per-callback entry point a device host calls.
type AudioEngine struct {
	exchange  *snapshot.Exchange
	graph     *graph.Graph
	scheduler *scheduler.Scheduler
	clock     *transport.Clock
	keys      *snapshot.KeyState
	profiler  *telemetry.BlockProfiler
	diag      *telemetry.Reporter
	log       *slog.Logger

	maxBlock int

	prevOverBudget    uint64
	prevNotesDropped  uint64
	prevLanesDropped  uint64
	prevPointsDropped uint64
}

// New assembles an AudioEngine from its already-constructed parts. g and
// the scheduler's clock must agree on track/fx-slot layout with the
// limits the exchange was built from.
func New(exchange *snapshot.Exchange, g *graph.Graph, sched *scheduler.Scheduler, clock *transport.Clock, keys *snapshot.KeyState, profiler *telemetry.BlockProfiler, diag *telemetry.Reporter, maxBlock int, log *slog.Logger) *AudioEngine {
	if log == nil {
		log = slog.Default()
	}
	return &AudioEngine{
		exchange:  exchange,
		graph:     g,
		scheduler: sched,
		clock:     clock,
		keys:      keys,
		profiler:  profiler,
		diag:      diag,
		log:       log,
		maxBlock:  maxBlock,
	}
}

// Render is the device callback. outL/outR must have capacity >= frames
// and frames must not exceed the configured max_block; the caller (a real
// device host or a test harness) owns buffer allocation. Render never
// allocates on its own.
func (e *AudioEngine) Render(outL, outR []float32, frames int) {
	start := time.Now()
	defer func() {
		if e.profiler != nil {
			e.profiler.Record(time.Since(start))
		}
	}()

	if frames > e.maxBlock {
		frames = e.maxBlock
	}

	if e.exchange.Rebuilding() {
		clearOutput(outL, outR, frames)
		return
	}

	handle := e.exchange.BeginProcess()
	defer handle.End()
	snap := handle.Snapshot()

	e.graph.ClearEventPorts()
	if e.scheduler != nil {
		e.scheduler.Populate(snap, e.graph, e.keys, frames)
	}

	steadyTime := e.clock.SteadyTime()
	e.graph.Process(snap, frames, steadyTime)
	e.clock.Advance(frames, snap.Transport.Bpm)

	master := e.graph.MasterOutput()
	l, r := master.Frames(frames)
	copy(outL[:frames], l)
	copy(outR[:frames], r)

	e.reportDiagnostics()
}

// reportDiagnostics pushes one Diagnostic per newly-observed overrun or
// snapshot-truncation event, tracking the previously-seen cumulative
// counters so a condition that stays true (the block stays over budget,
// the overflow counters stay nonzero) is reported once per new
// occurrence rather than flooding the ring every block forever after
// the first hit.
func (e *AudioEngine) reportDiagnostics() {
	if e.diag == nil {
		return
	}
	if e.profiler != nil {
		if s := e.profiler.Snapshot(); s.OverBudget > e.prevOverBudget {
			e.prevOverBudget = s.OverBudget
			e.diag.Report(telemetry.Diagnostic{
				Severity: telemetry.SeverityWarn,
				Code:     telemetry.CodeBlockOverBudget,
				A:        int64(s.LastUs),
				B:        int64(s.BudgetUs),
			})
		}
	}

	notes, lanes, points := e.exchange.Diagnostics().Snapshot()
	if notes > e.prevNotesDropped || lanes > e.prevLanesDropped || points > e.prevPointsDropped {
		e.prevNotesDropped, e.prevLanesDropped, e.prevPointsDropped = notes, lanes, points
		e.diag.Report(telemetry.Diagnostic{
			Severity: telemetry.SeverityWarn,
			Code:     telemetry.CodeEventPortOverflow,
			A:        int64(notes),
			B:        int64(lanes + points),
		})
	}
}

func clearOutput(outL, outR []float32, frames int) {
	for i := 0; i < frames && i < len(outL); i++ {
		outL[i] = 0
	}
	for i := 0; i < frames && i < len(outR); i++ {
		outR[i] = 0
	}
}
