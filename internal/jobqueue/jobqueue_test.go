package jobqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteRunsJobs(t *testing.T) {
	q := New(4, 16)
	defer q.Stop()

	var counter atomic.Int64
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !q.Execute(ctx, func() { counter.Add(1) }) {
			t.Fatalf("Execute rejected job %d", i)
		}
	}

	deadline := time.Now().Add(time.Second)
	for counter.Load() < 100 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := counter.Load(); got != 100 {
		t.Fatalf("expected 100 jobs run, got %d", got)
	}
}

func TestExecuteRejectsAfterContextCancel(t *testing.T) {
	q := New(1, 1)
	defer q.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Saturate the single worker slot first so Acquire blocks on ctx.Done.
	block := make(chan struct{})
	q.Execute(context.Background(), func() { <-block })
	defer close(block)

	if q.Execute(ctx, func() {}) {
		t.Error("expected Execute to fail with an already-canceled context")
	}
}
