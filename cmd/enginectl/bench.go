package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/launchcore/engine/internal/config"
	"github.com/launchcore/engine/internal/engine"
	"github.com/launchcore/engine/internal/graph"
	"github.com/launchcore/engine/internal/jobqueue"
	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/internal/pluginhost/fixture"
	"github.com/launchcore/engine/internal/scheduler"
	"github.com/launchcore/engine/internal/session"
	"github.com/launchcore/engine/internal/snapshot"
	"github.com/launchcore/engine/internal/telemetry"
	"github.com/launchcore/engine/internal/transport"
)

var benchBlocks int

func benchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Render synthetic blocks through a fixture-plugin graph and report DSP load",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runBench(cfg, benchBlocks)
		},
	}
	cmd.Flags().IntVar(&benchBlocks, "blocks", 10000, "number of blocks to render")
	return cmd
}

func runBench(cfg *config.Config, blocks int) error {
	limits := cfg.Limits()
	model := session.NewModel(limits.TrackCount, limits.SceneCount)
	exchange := snapshot.NewExchange(limits)
	host := pluginhost.NewHost(fixture.New(), slog.Default())
	jobs := jobqueue.New(runtime.GOMAXPROCS(0), 64)
	defer jobs.Stop()
	host.SetJobQueue(jobs)

	g, err := graph.Build(limits.TrackCount, limits.MaxFxSlots, limits.MaxBlock, config.DefaultEventCapacity)
	if err != nil {
		return err
	}
	clock := transport.NewClock(float64(cfg.SampleRate))
	sched := scheduler.New(clock)
	keys := snapshot.NewKeyState(limits.TrackCount)
	profiler := telemetry.NewBlockProfiler(float64(cfg.SampleRate), cfg.MaxBlock)
	reporter, sink := telemetry.NewChannel()

	host.LoadInstrument(0, "", "fixture.synth", float64(cfg.SampleRate), 1, limits.MaxBlock)
	model.Tracks[0].Volume = 1
	model.Slots[0][0] = session.ClipSlot{
		State:       session.ClipPlaying,
		LengthBeats: 4,
		Clip: session.PianoClip{
			LengthBeats: 4,
			Notes:       []session.Note{{Pitch: 60, Start: 0, Duration: 2, Velocity: 1}},
		},
	}
	model.Transport.Playing = true
	model.Transport.Bpm = 120

	ctrl := engine.NewController(model, exchange, host, sched)
	ctrl.Publish()

	audio := engine.New(exchange, g, sched, clock, keys, profiler, reporter, cfg.MaxBlock, slog.Default())

	outL := make([]float32, cfg.MaxBlock)
	outR := make([]float32, cfg.MaxBlock)
	for i := 0; i < blocks; i++ {
		audio.Render(outL, outR, cfg.MaxBlock)
		ctrl.ApplySchedulerReports()
	}

	snap := profiler.Snapshot()
	fmt.Printf("blocks=%d avg=%.1fus max=%dus budget=%.1fus load=%.3f over_budget=%d\n",
		blocks, snap.AvgUs, snap.MaxUs, snap.BudgetUs, snap.LoadRatio, snap.OverBudget)

	var diags []telemetry.Diagnostic
	diags = sink.Drain(diags)
	for _, d := range diags {
		fmt.Printf("diag: %s %s a=%d b=%d\n", d.Severity, d.Code, d.A, d.B)
	}
	return nil
}
