package loop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lucasnoah/reviewloop/internal/review"
)

type stubValidator struct {
	results []review.ValidationResult
	errs    []error
	calls   int
}

func (v *stubValidator) Validate(ctx context.Context) (review.ValidationResult, error) {
	i := v.calls
	v.calls++
	var res review.ValidationResult
	var err error
	if i < len(v.results) {
		res = v.results[i]
	} else if len(v.results) > 0 {
		res = v.results[len(v.results)-1]
	}
	if i < len(v.errs) {
		err = v.errs[i]
	}
	return res, err
}

func passing() *stubValidator {
	return &stubValidator{results: []review.ValidationResult{{Passed: true}}}
}

func queueEntry(sev review.Severity, status review.EntryStatus) *review.IssueQueueEntry {
	return &review.IssueQueueEntry{
		Finding: review.Finding{
			Severity:    sev,
			Category:    "tests",
			Location:    review.Location{File: "a.go"},
			Description: "d",
		},
		Status: status,
	}
}

func TestCheckSuccess(t *testing.T) {
	c := NewChecker(passing(), 5)
	state := review.NewLoopState()
	state.Iteration = 2
	state.Queue = []*review.IssueQueueEntry{
		queueEntry(review.SeverityCritical, review.StatusFixed),
		queueEntry(review.SeveritySuggestion, review.StatusPending), // suggestions never block
	}

	rec := review.IterationRecord{Iteration: 2, Fixed: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalSuccess {
		t.Errorf("terminal = %s, want success", got)
	}
	if rec.Validation == nil || !rec.Validation.Passed {
		t.Errorf("record validation = %+v", rec.Validation)
	}
}

func TestCheckSuccessBeatsExhaustion(t *testing.T) {
	// Converging on the final allowed iteration still succeeds.
	c := NewChecker(passing(), 3)
	state := review.NewLoopState()
	state.Iteration = 3

	rec := review.IterationRecord{Iteration: 3}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalSuccess {
		t.Errorf("terminal = %s, want success", got)
	}
}

func TestCheckBlockingEntryPreventsSuccess(t *testing.T) {
	for _, status := range []review.EntryStatus{review.StatusPending, review.StatusFailed, review.StatusInProgress} {
		c := NewChecker(passing(), 5)
		state := review.NewLoopState()
		state.Iteration = 1
		state.Queue = []*review.IssueQueueEntry{queueEntry(review.SeverityWarning, status)}

		rec := review.IterationRecord{Iteration: 1}
		if got := c.Check(context.Background(), state, &rec); got != review.TerminalNone {
			t.Errorf("status %s: terminal = %s, want continue", status, got)
		}
	}
}

func TestCheckSkippedCriticalDoesNotBlock(t *testing.T) {
	c := NewChecker(passing(), 5)
	state := review.NewLoopState()
	state.Iteration = 2
	state.Queue = []*review.IssueQueueEntry{queueEntry(review.SeverityCritical, review.StatusSkipped)}

	rec := review.IterationRecord{Iteration: 2, Skipped: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalSuccess {
		t.Errorf("terminal = %s, want success (skipped entries do not block)", got)
	}
}

func TestCheckValidationFailurePreventsSuccess(t *testing.T) {
	v := &stubValidator{results: []review.ValidationResult{{Passed: false, Details: "2 tests failed"}}}
	c := NewChecker(v, 5)
	state := review.NewLoopState()
	state.Iteration = 1

	rec := review.IterationRecord{Iteration: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalNone {
		t.Errorf("terminal = %s, want continue", got)
	}
	if rec.Validation.Passed || rec.Validation.Details != "2 tests failed" {
		t.Errorf("record validation = %+v", rec.Validation)
	}
}

func TestCheckExhausted(t *testing.T) {
	v := &stubValidator{results: []review.ValidationResult{{Passed: false}}}
	c := NewChecker(v, 3)
	state := review.NewLoopState()
	state.Iteration = 3
	state.Queue = []*review.IssueQueueEntry{queueEntry(review.SeverityCritical, review.StatusFailed)}

	rec := review.IterationRecord{Iteration: 3, Failed: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalExhausted {
		t.Errorf("terminal = %s, want exhausted", got)
	}
}

func TestCheckStalled(t *testing.T) {
	v := &stubValidator{results: []review.ValidationResult{{Passed: false}}}
	c := NewChecker(v, 10)
	state := review.NewLoopState()
	state.Iteration = 2
	state.Queue = []*review.IssueQueueEntry{queueEntry(review.SeverityCritical, review.StatusFailed)}
	state.History = []review.IterationRecord{{Iteration: 1, Fixed: 0, Failed: 1, Skipped: 0}}

	rec := review.IterationRecord{Iteration: 2, Fixed: 0, Failed: 1, Skipped: 0}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalStalled {
		t.Errorf("terminal = %s, want stalled (cap not reached)", got)
	}
}

func TestCheckProgressNotStalled(t *testing.T) {
	v := &stubValidator{results: []review.ValidationResult{{Passed: false}}}
	c := NewChecker(v, 10)
	state := review.NewLoopState()
	state.Iteration = 2
	state.Queue = []*review.IssueQueueEntry{queueEntry(review.SeverityCritical, review.StatusFailed)}
	state.History = []review.IterationRecord{{Iteration: 1, Fixed: 2, Failed: 1}}

	rec := review.IterationRecord{Iteration: 2, Fixed: 1, Failed: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalNone {
		t.Errorf("terminal = %s, want continue", got)
	}
}

func TestCheckValidatorErrorIsFailedValidation(t *testing.T) {
	v := &stubValidator{errs: []error{errors.New("test runner missing")}}
	c := NewChecker(v, 5)
	state := review.NewLoopState()
	state.Iteration = 1

	rec := review.IterationRecord{Iteration: 1}
	if got := c.Check(context.Background(), state, &rec); got != review.TerminalNone {
		t.Errorf("terminal = %s, want continue (gate failure is not a crash)", got)
	}
	if rec.Validation.Passed {
		t.Error("validation should be recorded as failed")
	}
	if !strings.Contains(rec.Validation.Details, "test runner missing") {
		t.Errorf("details = %q", rec.Validation.Details)
	}
}

func TestStepRejectsIllegalTransition(t *testing.T) {
	if _, err := step(PhaseIdle, PhaseFixing); !errors.Is(err, review.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if next, err := step(PhaseValidating, PhaseContinuing); err != nil || next != PhaseContinuing {
		t.Errorf("legal transition rejected: %v", err)
	}
	// Terminal states have no outgoing edges.
	if _, err := step(PhaseConverged, PhaseAnalyzing); err == nil {
		t.Error("expected error leaving terminal state")
	}
}
