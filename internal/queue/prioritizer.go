package queue

import (
	"sort"
	"strings"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// Prioritizer orders the issue set by severity, category precedence, and
// discovery order, and bounds how much of it one iteration may attempt.
// Category precedence is policy, not a constant: it comes from config.
type Prioritizer struct {
	categoryRank map[string]int
	unlisted     int
	maxPerRound  int
}

// NewPrioritizer builds a Prioritizer from precedence groups. Categories
// in the same group share a rank; any category not listed sorts after all
// listed ones.
func NewPrioritizer(precedence [][]string, maxPerRound int) *Prioritizer {
	if maxPerRound <= 0 {
		maxPerRound = 20
	}
	rank := make(map[string]int)
	for i, group := range precedence {
		for _, cat := range group {
			rank[strings.ToLower(cat)] = i
		}
	}
	return &Prioritizer{
		categoryRank: rank,
		unlisted:     len(precedence),
		maxPerRound:  maxPerRound,
	}
}

// Prioritize merges newly aggregated findings with the carried-over queue
// and returns the full sorted queue. Resolved entries (fixed, skipped)
// are dropped. A re-found finding maps onto its existing entry so the
// attempts counter survives across iterations; genuinely new findings get
// fresh pending entries with the next discovery indexes.
//
// The sort is stable: severity rank first, category rank second, original
// discovery order as the final tie-break.
func (p *Prioritizer) Prioritize(findings []review.Finding, previous []*review.IssueQueueEntry) []*review.IssueQueueEntry {
	var queue []*review.IssueQueueEntry
	carried := make(map[string]bool)
	nextDiscovery := 0

	for _, e := range previous {
		if e.Discovered >= nextDiscovery {
			nextDiscovery = e.Discovered + 1
		}
		if e.Status.Resolved() {
			continue
		}
		queue = append(queue, e)
		carried[e.Finding.DedupKey()] = true
	}

	for _, f := range findings {
		if carried[f.DedupKey()] {
			continue
		}
		queue = append(queue, &review.IssueQueueEntry{
			Finding:    f,
			Discovered: nextDiscovery,
			Status:     review.StatusPending,
		})
		carried[f.DedupKey()] = true
		nextDiscovery++
	}

	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if ar, br := a.Finding.Severity.Rank(), b.Finding.Severity.Rank(); ar != br {
			return ar < br
		}
		if ar, br := p.rank(a.Finding.Category), p.rank(b.Finding.Category); ar != br {
			return ar < br
		}
		return a.Discovered < b.Discovered
	})

	return queue
}

// Round returns the slice of the queue this iteration may attempt, at
// most maxPerRound entries. Overflow entries stay in the full queue as
// pending and are deferred, never dropped.
func (p *Prioritizer) Round(queue []*review.IssueQueueEntry) []*review.IssueQueueEntry {
	if len(queue) <= p.maxPerRound {
		return queue
	}
	return queue[:p.maxPerRound]
}

func (p *Prioritizer) rank(category string) int {
	if r, ok := p.categoryRank[strings.ToLower(category)]; ok {
		return r
	}
	return p.unlisted
}
