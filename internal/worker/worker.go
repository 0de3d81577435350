package worker

import (
	"context"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// Analyzer is an opaque capability provider: given an immutable task
// descriptor it inspects the corpus and returns findings. Implementations
// may be slow or fail; the dispatcher handles both.
type Analyzer interface {
	Capability() string
	Analyze(ctx context.Context, task review.TaskDescriptor) ([]review.Finding, error)
}

// FixResult reports the outcome of one fix invocation. A fix counts only
// when both Applied and Verified are true; an applied-but-unverified fix
// is treated as a failure by the applier.
type FixResult struct {
	Applied  bool
	Verified bool
	Detail   string
}

// Fixer attempts to resolve a single finding with a narrow, single-issue
// scope. It may mutate the target corpus.
type Fixer interface {
	ApplyFix(ctx context.Context, finding review.Finding) (FixResult, error)
}

// Validator runs the full external validation pass (test suite, lint).
// It must be idempotent and side-effect-free on the corpus.
type Validator interface {
	Validate(ctx context.Context) (review.ValidationResult, error)
}

// Rescanner re-checks a single location, used for issue-scoped fix
// verification.
type Rescanner interface {
	Rescan(ctx context.Context, loc review.Location) ([]review.Finding, error)
}
