package review

import (
	"fmt"
	"strings"
)

// Severity classifies how urgent a finding is.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Rank returns the sort rank for a severity: lower sorts first.
// Unknown severities sort after all known ones.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeveritySuggestion:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the recognized severities.
func (s Severity) Valid() bool {
	return s.Rank() < 3
}

// Blocking reports whether an unresolved finding of this severity
// prevents the loop from converging. Suggestions never block.
func (s Severity) Blocking() bool {
	return s == SeverityCritical || s == SeverityWarning
}

// Location identifies where in the corpus a finding was observed.
// Line numbers are optional; a zero StartLine means the whole file.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

func (l Location) String() string {
	if l.StartLine <= 0 {
		return l.File
	}
	if l.EndLine > l.StartLine {
		return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
	}
	return fmt.Sprintf("%s:%d", l.File, l.StartLine)
}

// Finding is a single observation produced by a worker.
// Findings are immutable once created.
type Finding struct {
	Severity     Severity `json:"severity"`
	Category     string   `json:"category"`
	Location     Location `json:"location"`
	Description  string   `json:"description"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// DedupKey returns the key under which two findings are considered
// duplicates: same location and same category, case-insensitive.
func (f Finding) DedupKey() string {
	return strings.ToLower(f.Location.String()) + "|" + strings.ToLower(f.Category)
}

// TaskDescriptor is an immutable request handed to an analysis worker:
// a capability tag, a scope, and a context snapshot reference.
// An empty Scope means the whole corpus.
type TaskDescriptor struct {
	Capability string   `json:"capability"`
	Scope      []string `json:"scope,omitempty"`
	Snapshot   string   `json:"snapshot,omitempty"`
}

// ResultKind is the terminal outcome of one dispatched worker call.
type ResultKind string

const (
	ResultCompleted ResultKind = "completed"
	ResultTimedOut  ResultKind = "timed_out"
	ResultFailed    ResultKind = "failed"
)

// WorkerResult pairs a task with its terminal outcome. A timed-out or
// failed result carries no findings.
type WorkerResult struct {
	Task     TaskDescriptor `json:"task"`
	Kind     ResultKind     `json:"kind"`
	Findings []Finding      `json:"findings,omitempty"`
	Err      string         `json:"error,omitempty"`
}

// EntryStatus is the per-entry fix lifecycle state.
type EntryStatus string

const (
	StatusPending    EntryStatus = "pending"
	StatusInProgress EntryStatus = "in_progress"
	StatusFixed      EntryStatus = "fixed"
	StatusFailed     EntryStatus = "failed"
	StatusSkipped    EntryStatus = "skipped"
)

// Resolved reports whether the entry has left the live queue for good:
// either fixed or permanently abandoned.
func (s EntryStatus) Resolved() bool {
	return s == StatusFixed || s == StatusSkipped
}

// IssueQueueEntry is a Finding plus orchestration metadata. Entries are
// mutated in place by the fix applier as attempts are made.
type IssueQueueEntry struct {
	Finding    Finding     `json:"finding"`
	Discovered int         `json:"discovered"` // global discovery order, stable tie-break
	Attempts   int         `json:"attempts"`
	Status     EntryStatus `json:"status"`
	LastError  string      `json:"last_error,omitempty"`
}

// ValidationResult is the outcome of the external full-validation pass.
type ValidationResult struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// IterationRecord summarizes one loop pass. Records are append-only and
// never mutated after creation.
type IterationRecord struct {
	Iteration    int               `json:"iteration"`
	Criticals    int               `json:"criticals"`
	Warnings     int               `json:"warnings"`
	Suggestions  int               `json:"suggestions"`
	Fixed        int               `json:"fixed"`
	Failed       int               `json:"failed"`
	Skipped      int               `json:"skipped"`
	WorkerErrors []string          `json:"worker_errors,omitempty"`
	Validation   *ValidationResult `json:"validation,omitempty"`
}

// SameProgress reports whether two records show an identical
// (fixed, failed, skipped) triple — the stall signal.
func (r IterationRecord) SameProgress(o IterationRecord) bool {
	return r.Fixed == o.Fixed && r.Failed == o.Failed && r.Skipped == o.Skipped
}

// Terminal is the loop's end state. It stays TerminalNone for every
// iteration except possibly the last.
type Terminal string

const (
	TerminalNone      Terminal = "none"
	TerminalSuccess   Terminal = "success"
	TerminalExhausted Terminal = "exhausted"
	TerminalStalled   Terminal = "stalled"
)

// LoopState is the single piece of live cross-iteration state, owned by
// the iteration controller for its entire lifetime. Workers and the
// dispatcher only ever see per-call snapshots derived from it.
type LoopState struct {
	Iteration int                `json:"iteration"`
	Queue     []*IssueQueueEntry `json:"queue"`
	History   []IterationRecord  `json:"history"`
	Terminal  Terminal           `json:"terminal"`
}

// NewLoopState returns a fresh state positioned before the first iteration.
func NewLoopState() *LoopState {
	return &LoopState{
		Iteration: 0,
		Queue:     []*IssueQueueEntry{},
		History:   []IterationRecord{},
		Terminal:  TerminalNone,
	}
}

// LastTwo returns the two most recent iteration records, or false if
// fewer than two exist.
func (s *LoopState) LastTwo() (prev, last IterationRecord, ok bool) {
	n := len(s.History)
	if n < 2 {
		return IterationRecord{}, IterationRecord{}, false
	}
	return s.History[n-2], s.History[n-1], true
}
