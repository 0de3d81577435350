package loop

import (
	"context"
	"time"

	"github.com/lucasnoah/reviewloop/internal/aggregate"
	"github.com/lucasnoah/reviewloop/internal/dispatch"
	"github.com/lucasnoah/reviewloop/internal/fix"
	"github.com/lucasnoah/reviewloop/internal/queue"
	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/worker"
)

// Options wires a Controller. Analyzers, Dispatcher, Prioritizer,
// Applier, and Checker are required; Reporter, Events, Checkpoint, and
// Snapshot are optional. Resume lets an interrupted run pick up from a
// checkpointed state.
type Options struct {
	Analyzers   []worker.Analyzer
	Dispatcher  *dispatch.Dispatcher
	Prioritizer *queue.Prioritizer
	Applier     *fix.Applier
	Checker     *Checker
	Reporter    Reporter
	Events      EventLogger
	Checkpoint  Checkpointer
	Snapshot    func() string
	Resume      *review.LoopState
}

// Controller owns the loop. It is the only component with cross-iteration
// memory, and the only goroutine that ever touches LoopState: workers see
// per-call snapshots, never the live queue.
type Controller struct {
	analyzers   []worker.Analyzer
	dispatcher  *dispatch.Dispatcher
	prioritizer *queue.Prioritizer
	applier     *fix.Applier
	checker     *Checker
	reporter    Reporter
	events      EventLogger
	checkpoint  Checkpointer
	snapshot    func() string

	state *review.LoopState
	phase Phase
}

// NewController creates a Controller from Options.
func NewController(opts Options) *Controller {
	c := &Controller{
		analyzers:   opts.Analyzers,
		dispatcher:  opts.Dispatcher,
		prioritizer: opts.Prioritizer,
		applier:     opts.Applier,
		checker:     opts.Checker,
		reporter:    opts.Reporter,
		events:      opts.Events,
		checkpoint:  opts.Checkpoint,
		snapshot:    opts.Snapshot,
		state:       opts.Resume,
		phase:       PhaseIdle,
	}
	if c.reporter == nil {
		c.reporter = NopReporter{}
	}
	if c.events == nil {
		c.events = NopLogger{}
	}
	if c.snapshot == nil {
		c.snapshot = func() string { return time.Now().UTC().Format(time.RFC3339) }
	}
	if c.state == nil {
		c.state = review.NewLoopState()
	}
	return c
}

// Run drives the loop to a terminal state and returns the final
// LoopState: terminal flag plus the full iteration history, so every
// termination path is diagnosable. The returned error is non-nil only
// for programming defects (an illegal phase transition) or context
// cancellation — budget exhaustion and stalls are ordinary terminal
// states, not errors.
func (c *Controller) Run(ctx context.Context) (*review.LoopState, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.state, err
		}

		if err := c.step(PhaseAnalyzing); err != nil {
			return c.state, err
		}
		c.state.Iteration++
		_ = c.events.LogIteration(c.state.Iteration, "started", "")

		results := c.dispatcher.Dispatch(ctx, c.buildCalls())
		for _, r := range results {
			_ = c.events.LogWorkerRun(c.state.Iteration, r.Task.Capability, string(r.Kind), len(r.Findings), r.Err)
		}

		if err := c.step(PhaseAggregating); err != nil {
			return c.state, err
		}
		findings, workerErrors := aggregate.Aggregate(results)

		if err := c.step(PhasePrioritizing); err != nil {
			return c.state, err
		}
		c.state.Queue = c.prioritizer.Prioritize(findings, c.state.Queue)
		round := c.prioritizer.Round(c.state.Queue)

		if err := c.step(PhaseFixing); err != nil {
			return c.state, err
		}
		stats := c.applier.ApplyRound(ctx, round)
		for _, e := range round {
			_ = c.events.LogFixAttempt(c.state.Iteration, e.Finding.Location.String(),
				e.Finding.Category, e.Attempts, string(e.Status), e.LastError)
		}

		if err := c.step(PhaseValidating); err != nil {
			return c.state, err
		}
		rec := c.buildRecord(findings, workerErrors, stats)
		terminal := c.checker.Check(ctx, c.state, &rec)

		// Exactly one record per iteration, whichever branch is taken.
		c.state.History = append(c.state.History, rec)
		c.state.Terminal = terminal
		c.report(rec, terminal)

		if c.checkpoint != nil {
			_ = c.checkpoint.Save(c.state)
		}

		switch terminal {
		case review.TerminalSuccess:
			_ = c.events.LogIteration(c.state.Iteration, "converged", "")
			if err := c.step(PhaseConverged); err != nil {
				return c.state, err
			}
			return c.state, nil
		case review.TerminalExhausted, review.TerminalStalled:
			_ = c.events.LogIteration(c.state.Iteration, "terminated", string(terminal))
			if err := c.step(PhaseFailed); err != nil {
				return c.state, err
			}
			return c.state, nil
		default:
			if err := c.step(PhaseContinuing); err != nil {
				return c.state, err
			}
		}
	}
}

// buildCalls produces one whole-corpus task per capability. Descriptors
// are created fresh each dispatch round and never mutated.
func (c *Controller) buildCalls() []dispatch.Call {
	snapshot := c.snapshot()
	calls := make([]dispatch.Call, 0, len(c.analyzers))
	for _, a := range c.analyzers {
		calls = append(calls, dispatch.Call{
			Task: review.TaskDescriptor{
				Capability: a.Capability(),
				Snapshot:   snapshot,
			},
			Analyzer: a,
		})
	}
	return calls
}

func (c *Controller) buildRecord(findings []review.Finding, workerErrors []string, stats fix.RoundStats) review.IterationRecord {
	rec := review.IterationRecord{
		Iteration:    c.state.Iteration,
		Fixed:        stats.Fixed,
		Failed:       stats.Failed,
		Skipped:      stats.Skipped,
		WorkerErrors: workerErrors,
	}
	for _, f := range findings {
		switch f.Severity {
		case review.SeverityCritical:
			rec.Criticals++
		case review.SeverityWarning:
			rec.Warnings++
		case review.SeveritySuggestion:
			rec.Suggestions++
		}
	}
	return rec
}

func (c *Controller) report(rec review.IterationRecord, terminal review.Terminal) {
	statuses, severities := queueCounts(c.state.Queue)
	c.reporter.Progress(ProgressEvent{
		Iteration:      rec.Iteration,
		Record:         rec,
		StatusCounts:   statuses,
		SeverityCounts: severities,
		Terminal:       terminal,
	})
}

// step advances the phase machine, surfacing illegal transitions.
func (c *Controller) step(to Phase) error {
	next, err := step(c.phase, to)
	if err != nil {
		return err
	}
	c.phase = next
	return nil
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// State returns the controller's loop state. Callers outside the
// controller goroutine must treat it as read-only.
func (c *Controller) State() *review.LoopState {
	return c.state
}
