package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/worker"
)

// Call pairs an immutable task descriptor with the analyzer that will
// execute it.
type Call struct {
	Task     review.TaskDescriptor
	Analyzer worker.Analyzer
}

// Dispatcher fans worker calls out to a bounded number of goroutines and
// joins on all of them. It holds no state across Dispatch calls.
type Dispatcher struct {
	limit   int
	timeout time.Duration
}

// New creates a Dispatcher with the given concurrency limit and per-task
// timeout. Non-positive values fall back to safe defaults.
func New(limit int, perTaskTimeout time.Duration) *Dispatcher {
	if limit <= 0 {
		limit = 4
	}
	if perTaskTimeout <= 0 {
		perTaskTimeout = 2 * time.Minute
	}
	return &Dispatcher{limit: limit, timeout: perTaskTimeout}
}

// Dispatch runs every call and returns once each has reached a terminal
// outcome: completed, timed_out, or failed. This is a full barrier, never
// a partial return. A slow or failed call never aborts its siblings, and
// results come back in call order regardless of completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []Call) []review.WorkerResult {
	results := make([]review.WorkerResult, len(calls))

	sem := make(chan struct{}, d.limit)
	var wg sync.WaitGroup

	for i, c := range calls {
		wg.Add(1)
		go func(i int, c Call) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = d.runOne(ctx, c)
		}(i, c)
	}

	wg.Wait()
	return results
}

type callOutcome struct {
	findings []review.Finding
	err      error
}

// runOne executes a single worker call under the per-task timeout. A call
// that outlives its deadline is abandoned: its goroutine is left to drain
// in the background and its result, if any, is discarded.
func (d *Dispatcher) runOne(ctx context.Context, c Call) review.WorkerResult {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callOutcome{err: fmt.Errorf("worker panic: %v", r)}
			}
		}()
		findings, err := c.Analyzer.Analyze(callCtx, c.Task)
		done <- callOutcome{findings: findings, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return review.WorkerResult{Task: c.Task, Kind: review.ResultFailed, Err: out.err.Error()}
		}
		return review.WorkerResult{Task: c.Task, Kind: review.ResultCompleted, Findings: out.findings}
	case <-callCtx.Done():
		if callCtx.Err() == context.DeadlineExceeded {
			return review.WorkerResult{
				Task: c.Task,
				Kind: review.ResultTimedOut,
				Err:  fmt.Sprintf("timed out after %s", d.timeout),
			}
		}
		return review.WorkerResult{Task: c.Task, Kind: review.ResultFailed, Err: callCtx.Err().Error()}
	}
}
