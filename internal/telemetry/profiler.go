// Package telemetry tracks the audio engine's DSP load and surfaces it
// both as Prometheus gauges for external monitoring and as a bounded
// audio-to-UI diagnostics queue for in-process reporting, per spec §7's
// error-handling design note that failures are reported, not thrown,
// across the audio/UI boundary.
package telemetry

import (
	"sync/atomic"
	"time"
)

// BlockProfiler tracks render timing for one fixed-size audio block,
// reporting a running average/max against the block's real-time budget.
// Unlike a general-purpose profiler it holds no mutex and no map: Record
// is called from the audio thread every block and must not allocate or
// block.
type BlockProfiler struct {
	sampleRate float64
	blockSize  int

	lastUs    atomic.Uint64
	avgUs     atomic.Uint64 // fixed-point, x100
	maxUs     atomic.Uint64
	overCount atomic.Uint64
}

// NewBlockProfiler creates a profiler for blocks of blockSize frames at
// sampleRate.
func NewBlockProfiler(sampleRate float64, blockSize int) *BlockProfiler {
	return &BlockProfiler{sampleRate: sampleRate, blockSize: blockSize}
}

// BudgetUs returns the wall-clock microseconds one block has available
// before the audio thread would underrun.
func (p *BlockProfiler) BudgetUs() float64 {
	return float64(p.blockSize) / p.sampleRate * 1e6
}

// Record stores the elapsed render time for one block, updating the
// running average with a simple exponential filter (no history buffer,
// no allocation) and bumping the overrun counter if it exceeded budget.
func (p *BlockProfiler) Record(elapsed time.Duration) {
	us := uint64(elapsed.Microseconds())
	p.lastUs.Store(us)

	const alpha = 0.1 // smoothing factor for the running average
	prev := float64(p.avgUs.Load()) / 100
	avg := prev + alpha*(float64(us)-prev)
	p.avgUs.Store(uint64(avg * 100))

	for {
		cur := p.maxUs.Load()
		if us <= cur {
			break
		}
		if p.maxUs.CompareAndSwap(cur, us) {
			break
		}
	}

	if float64(us) > p.BudgetUs() {
		p.overCount.Add(1)
	}
}

// Snapshot is a point-in-time read of the profiler's counters.
type Snapshot struct {
	LastUs     uint64
	AvgUs      float64
	MaxUs      uint64
	BudgetUs   float64
	LoadRatio  float64
	OverBudget uint64
}

// Snapshot reads the current counters without resetting them.
func (p *BlockProfiler) Snapshot() Snapshot {
	avg := float64(p.avgUs.Load()) / 100
	budget := p.BudgetUs()
	ratio := 0.0
	if budget > 0 {
		ratio = avg / budget
	}
	return Snapshot{
		LastUs:     p.lastUs.Load(),
		AvgUs:      avg,
		MaxUs:      p.maxUs.Load(),
		BudgetUs:   budget,
		LoadRatio:  ratio,
		OverBudget: p.overCount.Load(),
	}
}

// ResetMax clears the high-water mark, typically called after the UI
// thread reads and displays it.
func (p *BlockProfiler) ResetMax() {
	p.maxUs.Store(0)
}
