package loop

import (
	"context"

	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/worker"
)

// Checker decides whether the loop is done. It is thin: the real
// validation work is delegated to the external validator.
type Checker struct {
	validator     worker.Validator
	maxIterations int
}

// NewChecker creates a Checker bounded by maxIterations.
func NewChecker(validator worker.Validator, maxIterations int) *Checker {
	if maxIterations <= 0 {
		maxIterations = 5
	}
	return &Checker{validator: validator, maxIterations: maxIterations}
}

// Check runs the validation gate, fills rec.Validation, and returns the
// loop's terminal decision. TerminalNone means continue.
//
// Precedence: success beats exhaustion — a run that converges on its
// final allowed iteration still succeeds. Exhaustion beats stall.
// Remaining suggestion-severity entries never block success.
func (c *Checker) Check(ctx context.Context, state *review.LoopState, rec *review.IterationRecord) review.Terminal {
	validation, err := c.validator.Validate(ctx)
	if err != nil {
		// The gate itself could not run; that is a failed validation for
		// this iteration, not a crash.
		validation = review.ValidationResult{Passed: false, Details: "validation could not run: " + err.Error()}
	}
	rec.Validation = &validation

	if !c.anyBlocking(state.Queue) && validation.Passed {
		return review.TerminalSuccess
	}
	if state.Iteration >= c.maxIterations {
		return review.TerminalExhausted
	}
	if n := len(state.History); n >= 1 && state.History[n-1].SameProgress(*rec) {
		// Two consecutive passes with identical fixed/failed/skipped
		// triples: terminate early rather than burn the full budget.
		return review.TerminalStalled
	}
	return review.TerminalNone
}

// anyBlocking reports whether the queue still holds an unresolved
// critical or warning entry.
func (c *Checker) anyBlocking(queue []*review.IssueQueueEntry) bool {
	for _, e := range queue {
		if e.Status.Resolved() {
			continue
		}
		if e.Finding.Severity.Blocking() {
			return true
		}
	}
	return false
}
