package review

import "errors"

// Sentinel errors for the loop's error taxonomy. Worker-level failures
// (timeout, crash) degrade gracefully and are recorded on the iteration
// record rather than propagated; these sentinels cover the paths that do
// flow through error returns.
var (
	// ErrFixUnverifiable means a fix was applied but the issue-scoped
	// verification itself could not run.
	ErrFixUnverifiable = errors.New("fix applied but unverifiable")

	// ErrRetryBudget means an entry hit its per-issue retry cap.
	ErrRetryBudget = errors.New("retry budget exhausted")

	// ErrInvalidTransition means the controller was asked to make a state
	// transition its machine does not allow. This is a programming defect
	// and is surfaced immediately, never swallowed.
	ErrInvalidTransition = errors.New("invalid state transition")
)
