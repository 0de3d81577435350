package loop

import "github.com/lucasnoah/reviewloop/internal/review"

// ProgressEvent is emitted after each iteration record is appended. The
// loop has no opinion on how a reporting layer renders it.
type ProgressEvent struct {
	Iteration      int                        `json:"iteration"`
	Record         review.IterationRecord     `json:"record"`
	StatusCounts   map[review.EntryStatus]int `json:"status_counts"`
	SeverityCounts map[review.Severity]int    `json:"severity_counts"`
	Terminal       review.Terminal            `json:"terminal"`
}

// Reporter receives progress events.
type Reporter interface {
	Progress(ev ProgressEvent)
}

// NopReporter discards progress events.
type NopReporter struct{}

func (NopReporter) Progress(ProgressEvent) {}

// queueCounts tallies the live queue by status and by severity for a
// progress event.
func queueCounts(queue []*review.IssueQueueEntry) (map[review.EntryStatus]int, map[review.Severity]int) {
	statuses := make(map[review.EntryStatus]int)
	severities := make(map[review.Severity]int)
	for _, e := range queue {
		statuses[e.Status]++
		severities[e.Finding.Severity]++
	}
	return statuses, severities
}

// EventLogger persists loop activity for later inspection. Implementations
// must tolerate being called from the controller goroutine only.
type EventLogger interface {
	LogIteration(iteration int, event string, detail string) error
	LogWorkerRun(iteration int, capability string, kind string, findings int, errMsg string) error
	LogFixAttempt(iteration int, location string, category string, attempt int, status string, lastError string) error
}

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) LogIteration(int, string, string) error                   { return nil }
func (NopLogger) LogWorkerRun(int, string, string, int, string) error      { return nil }
func (NopLogger) LogFixAttempt(int, string, string, int, string, string) error { return nil }

// Checkpointer persists LoopState between iterations so an interrupted
// run can resume. Save must round-trip the state exactly.
type Checkpointer interface {
	Save(state *review.LoopState) error
}
