package loop

import (
	"fmt"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// Phase is a state of the iteration controller's machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseAggregating  Phase = "aggregating"
	PhasePrioritizing Phase = "prioritizing"
	PhaseFixing       Phase = "fixing"
	PhaseValidating   Phase = "validating"
	PhaseContinuing   Phase = "continuing"
	PhaseConverged    Phase = "converged"
	PhaseFailed       Phase = "failed"
)

// transitions enumerates every legal edge of the machine. Converged and
// Failed are terminal.
var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseAnalyzing},
	PhaseAnalyzing:    {PhaseAggregating},
	PhaseAggregating:  {PhasePrioritizing},
	PhasePrioritizing: {PhaseFixing},
	PhaseFixing:       {PhaseValidating},
	PhaseValidating:   {PhaseConverged, PhaseFailed, PhaseContinuing},
	PhaseContinuing:   {PhaseAnalyzing},
}

// step moves from one phase to another, or reports a programming defect.
// A bad transition is never swallowed: it corrupts loop state and must
// surface immediately.
func step(from, to Phase) (Phase, error) {
	for _, next := range transitions[from] {
		if next == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", review.ErrInvalidTransition, from, to)
}
