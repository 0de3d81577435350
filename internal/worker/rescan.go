package worker

import (
	"context"
	"fmt"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// ScopedRescan verifies fixes by re-running every configured analyzer with
// the scope narrowed to a single file. It never sees the live queue; each
// call builds a fresh task descriptor.
type ScopedRescan struct {
	analyzers []Analyzer
}

// NewScopedRescan creates a ScopedRescan over the given analyzers.
func NewScopedRescan(analyzers []Analyzer) *ScopedRescan {
	return &ScopedRescan{analyzers: analyzers}
}

// Rescan runs each analyzer against the location's file and returns the
// combined findings. An analyzer error aborts the rescan: verification
// must be definitive, not best-effort.
func (r *ScopedRescan) Rescan(ctx context.Context, loc review.Location) ([]review.Finding, error) {
	var all []review.Finding
	for _, a := range r.analyzers {
		task := review.TaskDescriptor{
			Capability: a.Capability(),
			Scope:      []string{loc.File},
		}
		findings, err := a.Analyze(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("rescan with %s worker: %w", a.Capability(), err)
		}
		all = append(all, findings...)
	}
	return all, nil
}
