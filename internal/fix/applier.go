package fix

import (
	"context"

	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/worker"
)

// Applier resolves queue entries one at a time, strictly in priority
// order. Sequential processing sidesteps conflicting edits to overlapping
// locations entirely. Only verified fixes count: a fix the fixer claims
// but the issue-scoped re-check cannot confirm is recorded as a failure.
type Applier struct {
	fixer    worker.Fixer
	retryCap int
}

// NewApplier creates an Applier. retryCap is the per-issue attempt
// budget; non-positive values fall back to 3.
func NewApplier(fixer worker.Fixer, retryCap int) *Applier {
	if retryCap <= 0 {
		retryCap = 3
	}
	return &Applier{fixer: fixer, retryCap: retryCap}
}

// RoundStats counts what one fixing round did.
type RoundStats struct {
	Fixed   int
	Failed  int
	Skipped int
}

// ApplyRound processes the round's entries in order and returns counts.
// Entries already resolved are left alone.
func (a *Applier) ApplyRound(ctx context.Context, entries []*review.IssueQueueEntry) RoundStats {
	var stats RoundStats
	for _, e := range entries {
		if e.Status.Resolved() {
			continue
		}
		switch a.ApplyNext(ctx, e) {
		case review.StatusFixed:
			stats.Fixed++
		case review.StatusFailed:
			stats.Failed++
		case review.StatusSkipped:
			stats.Skipped++
		}
	}
	return stats
}

// ApplyNext attempts to resolve a single entry and returns its resulting
// status. An entry that has already burned its retry budget is marked
// skipped without attempting a fix, and its attempts counter stays put —
// attempts never exceeds the cap.
func (a *Applier) ApplyNext(ctx context.Context, e *review.IssueQueueEntry) review.EntryStatus {
	if e.Attempts >= a.retryCap {
		e.Status = review.StatusSkipped
		e.LastError = review.ErrRetryBudget.Error()
		return e.Status
	}

	e.Attempts++
	e.Status = review.StatusInProgress

	res, err := a.fixer.ApplyFix(ctx, e.Finding)
	switch {
	case err != nil:
		e.Status = review.StatusFailed
		e.LastError = err.Error()
	case !res.Applied:
		e.Status = review.StatusFailed
		e.LastError = res.Detail
		if e.LastError == "" {
			e.LastError = "fix not applied"
		}
	case !res.Verified:
		e.Status = review.StatusFailed
		e.LastError = "unverified fix rejected"
		if res.Detail != "" {
			e.LastError = "unverified fix rejected: " + res.Detail
		}
	default:
		e.Status = review.StatusFixed
		e.LastError = ""
	}
	return e.Status
}
