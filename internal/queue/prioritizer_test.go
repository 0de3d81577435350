package queue

import (
	"testing"

	"github.com/lucasnoah/reviewloop/internal/review"
)

var testPrecedence = [][]string{
	{"security", "injection"},
	{"correctness", "tests"},
	{"performance", "n-plus-one"},
	{"style"},
}

func finding(sev review.Severity, category, file string) review.Finding {
	return review.Finding{
		Severity:    sev,
		Category:    category,
		Location:    review.Location{File: file},
		Description: "d",
	}
}

func TestPrioritizeSortKey(t *testing.T) {
	findings := []review.Finding{
		finding(review.SeveritySuggestion, "style", "e.go"),
		finding(review.SeverityWarning, "n-plus-one", "c.go"),
		finding(review.SeverityCritical, "tests", "b.go"),
		finding(review.SeverityCritical, "injection", "a.go"),
		finding(review.SeverityWarning, "docs", "d.go"), // unlisted category sorts last in its severity band
	}

	p := NewPrioritizer(testPrecedence, 20)
	queue := p.Prioritize(findings, nil)

	var got []string
	for _, e := range queue {
		got = append(got, e.Finding.Location.File)
	}
	want := []string{"a.go", "b.go", "c.go", "d.go", "e.go"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPrioritizeStableOnTies(t *testing.T) {
	// Same severity and category: discovery order decides.
	findings := []review.Finding{
		finding(review.SeverityWarning, "style", "first.go"),
		finding(review.SeverityWarning, "style", "second.go"),
		finding(review.SeverityWarning, "style", "third.go"),
	}

	p := NewPrioritizer(testPrecedence, 20)
	queue := p.Prioritize(findings, nil)

	for i, want := range []string{"first.go", "second.go", "third.go"} {
		if queue[i].Finding.Location.File != want {
			t.Errorf("queue[%d] = %s, want %s", i, queue[i].Finding.Location.File, want)
		}
	}
	for i, e := range queue {
		if e.Discovered != i {
			t.Errorf("Discovered[%d] = %d", i, e.Discovered)
		}
		if e.Status != review.StatusPending {
			t.Errorf("Status[%d] = %s", i, e.Status)
		}
	}
}

func TestPrioritizeDropsResolvedCarriesLive(t *testing.T) {
	previous := []*review.IssueQueueEntry{
		{Finding: finding(review.SeverityCritical, "injection", "fixed.go"), Discovered: 0, Status: review.StatusFixed},
		{Finding: finding(review.SeverityWarning, "tests", "failed.go"), Discovered: 1, Status: review.StatusFailed, Attempts: 2},
		{Finding: finding(review.SeveritySuggestion, "style", "skipped.go"), Discovered: 2, Status: review.StatusSkipped},
		{Finding: finding(review.SeverityWarning, "style", "pending.go"), Discovered: 3, Status: review.StatusPending},
	}

	p := NewPrioritizer(testPrecedence, 20)
	queue := p.Prioritize(nil, previous)

	if len(queue) != 2 {
		t.Fatalf("got %d entries, want 2 (fixed and skipped dropped)", len(queue))
	}
	if queue[0].Finding.Location.File != "failed.go" || queue[0].Attempts != 2 {
		t.Errorf("queue[0] = %+v, want carried failed entry with attempts intact", queue[0])
	}
	if queue[1].Finding.Location.File != "pending.go" {
		t.Errorf("queue[1] = %+v", queue[1])
	}
}

func TestPrioritizeRefoundFindingKeepsEntry(t *testing.T) {
	carried := &review.IssueQueueEntry{
		Finding:    finding(review.SeverityWarning, "tests", "flaky.go"),
		Discovered: 0,
		Status:     review.StatusFailed,
		Attempts:   2,
		LastError:  "patch did not apply",
	}

	// The re-scan finds the same issue again.
	p := NewPrioritizer(testPrecedence, 20)
	queue := p.Prioritize([]review.Finding{finding(review.SeverityWarning, "tests", "flaky.go")}, []*review.IssueQueueEntry{carried})

	if len(queue) != 1 {
		t.Fatalf("got %d entries, want 1 (no duplicate entry)", len(queue))
	}
	if queue[0] != carried {
		t.Error("re-found finding should map onto the carried entry")
	}
	if queue[0].Attempts != 2 {
		t.Errorf("attempts = %d, want preserved 2", queue[0].Attempts)
	}
}

func TestPrioritizeNewFindingsGetFreshDiscoveryIndexes(t *testing.T) {
	previous := []*review.IssueQueueEntry{
		{Finding: finding(review.SeverityWarning, "style", "old.go"), Discovered: 4, Status: review.StatusPending},
	}

	p := NewPrioritizer(testPrecedence, 20)
	queue := p.Prioritize([]review.Finding{finding(review.SeverityWarning, "style", "new.go")}, previous)

	if len(queue) != 2 {
		t.Fatalf("got %d entries", len(queue))
	}
	// New entry's discovery index continues after the carried maximum.
	for _, e := range queue {
		if e.Finding.Location.File == "new.go" && e.Discovered != 5 {
			t.Errorf("new entry Discovered = %d, want 5", e.Discovered)
		}
	}
}

func TestRoundCapsQueue(t *testing.T) {
	var findings []review.Finding
	for _, f := range []string{"a.go", "b.go", "c.go", "d.go", "e.go"} {
		findings = append(findings, finding(review.SeverityWarning, "style", f))
	}

	p := NewPrioritizer(testPrecedence, 2)
	queue := p.Prioritize(findings, nil)
	round := p.Round(queue)

	if len(round) != 2 {
		t.Fatalf("round = %d entries, want 2", len(round))
	}
	if len(queue) != 5 {
		t.Fatalf("full queue = %d entries, want 5 (overflow deferred, not dropped)", len(queue))
	}
	// Overflow entries are untouched.
	for _, e := range queue[2:] {
		if e.Status != review.StatusPending {
			t.Errorf("deferred entry status = %s, want pending", e.Status)
		}
	}
}
