package aggregate

import (
	"fmt"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// Aggregate merges raw worker results into a single deduplicated finding
// set. Failed and timed-out results contribute zero findings; they come
// back as log lines for the iteration record.
//
// Two findings are duplicates when they share location and category
// (case-insensitive). The survivor is chosen deterministically so the
// output is reproducible across reorderings of parallel results: higher
// severity wins, then longer description, then lexicographically smaller
// description. Output order is first occurrence of each key in task
// order; the prioritizer imposes the real ordering.
func Aggregate(results []review.WorkerResult) ([]review.Finding, []string) {
	var workerErrors []string
	byKey := make(map[string]review.Finding)
	var order []string

	for _, res := range results {
		if res.Kind != review.ResultCompleted {
			workerErrors = append(workerErrors,
				fmt.Sprintf("%s worker %s: %s", res.Task.Capability, res.Kind, res.Err))
			continue
		}

		for _, f := range res.Findings {
			key := f.DedupKey()
			existing, seen := byKey[key]
			if !seen {
				byKey[key] = f
				order = append(order, key)
				continue
			}
			if prefer(f, existing) {
				byKey[key] = f
			}
		}
	}

	findings := make([]review.Finding, 0, len(order))
	for _, key := range order {
		findings = append(findings, byKey[key])
	}
	return findings, workerErrors
}

// prefer reports whether candidate should replace incumbent among
// duplicates.
func prefer(candidate, incumbent review.Finding) bool {
	if cr, ir := candidate.Severity.Rank(), incumbent.Severity.Rank(); cr != ir {
		return cr < ir
	}
	if lc, li := len(candidate.Description), len(incumbent.Description); lc != li {
		return lc > li
	}
	return candidate.Description < incumbent.Description
}
