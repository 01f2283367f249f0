package main

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/launchcore/engine/internal/telemetry"
)

const reportInterval = 20 * time.Millisecond

func telemetryRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// diagnosticsDrain starts a background goroutine that periodically drains
// the audio thread's diagnostics sink into metrics and logs, and returns a
// ticker the caller drives its own UI-thread work (ApplySchedulerReports)
// from at the same cadence.
func diagnosticsDrain(sink *telemetry.Sink, metrics *telemetry.Metrics, profiler *telemetry.BlockProfiler, log *slog.Logger) *time.Ticker {
	ticker := time.NewTicker(reportInterval)
	go func() {
		var buf []telemetry.Diagnostic
		for range ticker.C {
			metrics.ObserveBlock(profiler.Snapshot())
			buf = sink.Drain(buf[:0])
			for _, d := range buf {
				log.Warn("devicehost: diagnostic", "severity", d.Severity.String(), "code", d.Code, "a", d.A, "b", d.B)
			}
		}
	}()
	return time.NewTicker(reportInterval)
}
