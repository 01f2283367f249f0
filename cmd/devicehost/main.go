// Command devicehost binds the engine core to a real PortAudio output
// stream: it loads configuration, builds the node graph, and drives the
// audio callback straight out of internal/engine, following the
// Initialize -> OpenDefaultStream -> Start lifecycle used across the
// pack's own PortAudio hosts.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gordonklaus/portaudio"

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
	"github.com/launchcore/engine/internal/threadid"
	"github.com/launchcore/engine/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults to built-in + env)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*configPath, log); err != nil {
		log.Error("devicehost: fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("devicehost: %w", err)
	}
	limits := cfg.Limits()

	model := session.NewModel(limits.TrackCount, limits.SceneCount)
	exchange := snapshot.NewExchange(limits)
	// The fixture ABI stands in for a real dynamic-library loader until one
	// is wired up; everything downstream of pluginhost.Host is identical
	// either way.
	host := pluginhost.NewHost(fixture.New(), log)
	jobs := jobqueue.New(runtime.GOMAXPROCS(0), 64)
	defer jobs.Stop()
	host.SetJobQueue(jobs)

	g, err := graph.Build(limits.TrackCount, limits.MaxFxSlots, limits.MaxBlock, config.DefaultEventCapacity)
	if err != nil {
		return fmt.Errorf("devicehost: build graph: %w", err)
	}
	clock := transport.NewClock(float64(cfg.SampleRate))
	sched := scheduler.New(clock)
	keys := snapshot.NewKeyState(limits.TrackCount)
	profiler := telemetry.NewBlockProfiler(float64(cfg.SampleRate), cfg.MaxBlock)
	reporter, sink := telemetry.NewChannel()

	registry := telemetryRegistry()
	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("devicehost: metrics: %w", err)
	}

	ctrl := engine.NewController(model, exchange, host, sched)
	ctrl.Publish()

	audio := engine.New(exchange, g, sched, clock, keys, profiler, reporter, cfg.MaxBlock, log)

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("devicehost: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	outL := make([]float32, cfg.MaxBlock)
	outR := make([]float32, cfg.MaxBlock)
	callback := func(out [][]float32) {
		threadid.MarkAudioThread()
		frames := len(out[0])
		audio.Render(outL[:frames], outR[:frames], frames)
		for i := 0; i < frames; i++ {
			out[0][i] = outL[i]
			out[1][i] = outR[i]
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(cfg.SampleRate), cfg.MaxBlock, callback)
	if err != nil {
		return fmt.Errorf("devicehost: open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("devicehost: start stream: %w", err)
	}
	defer stream.Stop()

	log.Info("devicehost: streaming", "sample_rate", cfg.SampleRate, "block", cfg.MaxBlock, "tracks", cfg.TrackCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := diagnosticsDrain(sink, metrics, profiler, log)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Info("devicehost: shutting down")
			return nil
		case <-ticker.C:
			ctrl.ApplySchedulerReports()
		}
	}
}
