package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's DSP load as Prometheus gauges: the
// running average and peak render time per block, the real-time budget
// those are measured against, and the derived load ratio, plus the
// saturating overflow counters from the snapshot and event-port drop
// paths. None of this is read from the audio thread; the caller sets the
// gauges and counters off the audio thread through ObserveBlock,
// SetOverBudgetTotal and ObserveOverflow.
type Metrics struct {
	avgUs        prometheus.Gauge
	maxUs        prometheus.Gauge
	budgetUs     prometheus.Gauge
	loadRatio    prometheus.Gauge
	overBudget   prometheus.Counter
	notesDropped prometheus.Counter
	autoDropped  prometheus.Counter
	eventsDropped prometheus.Counter

	prevOverBudget uint64
}

// NewMetrics constructs the gauge/counter set and registers it against
// registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		avgUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchcore", Subsystem: "dsp", Name: "block_avg_us",
			Help: "Exponentially smoothed render time per audio block, in microseconds.",
		}),
		maxUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchcore", Subsystem: "dsp", Name: "block_max_us",
			Help: "Peak render time per audio block since the last reset, in microseconds.",
		}),
		budgetUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchcore", Subsystem: "dsp", Name: "block_budget_us",
			Help: "Wall-clock microseconds one block has before an underrun.",
		}),
		loadRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchcore", Subsystem: "dsp", Name: "load_ratio",
			Help: "Average render time divided by the block budget.",
		}),
		overBudget: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "launchcore", Subsystem: "dsp", Name: "blocks_over_budget_total",
			Help: "Count of blocks whose render time exceeded budget.",
		}),
		notesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "launchcore", Subsystem: "snapshot", Name: "notes_truncated_total",
			Help: "Notes dropped from a clip snapshot because it exceeded max_notes_per_clip.",
		}),
		autoDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "launchcore", Subsystem: "snapshot", Name: "automation_points_truncated_total",
			Help: "Automation points dropped from a snapshot because a lane exceeded max_automation_points.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "launchcore", Subsystem: "graph", Name: "events_dropped_total",
			Help: "Events dropped because a node's event port reached capacity for the block.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.avgUs, m.maxUs, m.budgetUs, m.loadRatio, m.overBudget,
		m.notesDropped, m.autoDropped, m.eventsDropped,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveBlock updates the DSP-load gauges from a profiler snapshot.
func (m *Metrics) ObserveBlock(s Snapshot) {
	m.avgUs.Set(s.AvgUs)
	m.maxUs.Set(float64(s.MaxUs))
	m.budgetUs.Set(s.BudgetUs)
	m.loadRatio.Set(s.LoadRatio)
}

// SetOverBudgetTotal syncs the over-budget counter to the profiler's
// cumulative count. Callers must only ever pass a non-decreasing total
// (BlockProfiler's counter guarantees this); m.prevOverBudget tracks what
// was already added so repeated calls only add the delta.
func (m *Metrics) SetOverBudgetTotal(total uint64) {
	prev := m.prevOverBudget
	if total > prev {
		m.overBudget.Add(float64(total - prev))
		m.prevOverBudget = total
	}
}

// ObserveOverflow adds notes, autoPoints and events to the drop counters.
// The arguments are increments since the previous call, not cumulative
// totals: unlike SetOverBudgetTotal, no previous value is kept.
func (m *Metrics) ObserveOverflow(notes, autoPoints, events uint64) {
	m.notesDropped.Add(float64(notes))
	m.autoDropped.Add(float64(autoPoints))
	m.eventsDropped.Add(float64(events))
}
