package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// rawFinding is the wire shape workers emit. Location can be given either
// structured or as a "file:line" string.
type rawFinding struct {
	Severity     string          `json:"severity"`
	Category     string          `json:"category"`
	Location     json.RawMessage `json:"location"`
	Description  string          `json:"description"`
	SuggestedFix string          `json:"suggested_fix"`
}

type findingEnvelope struct {
	Findings []rawFinding `json:"findings"`
}

// ParseFindings decodes worker output into findings. Both a bare JSON
// array and a {"findings": [...]} envelope are accepted; empty output
// means no findings. Unrecognized severities are coerced to "suggestion"
// so one sloppy worker cannot break the queue's severity invariant.
func ParseFindings(data []byte) ([]review.Finding, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []rawFinding
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode findings array: %w", err)
		}
	} else {
		var env findingEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode findings envelope: %w", err)
		}
		raw = env.Findings
	}

	findings := make([]review.Finding, 0, len(raw))
	for i, r := range raw {
		loc, err := parseLocation(r.Location)
		if err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		if r.Description == "" {
			return nil, fmt.Errorf("finding %d: missing description", i)
		}

		sev := review.Severity(strings.ToLower(r.Severity))
		if !sev.Valid() {
			sev = review.SeveritySuggestion
		}

		findings = append(findings, review.Finding{
			Severity:     sev,
			Category:     r.Category,
			Location:     loc,
			Description:  r.Description,
			SuggestedFix: r.SuggestedFix,
		})
	}
	return findings, nil
}

// parseLocation accepts either {"file": ..., "start_line": ...} or a
// plain "file", "file:line" or "file:start-end" string.
func parseLocation(raw json.RawMessage) (review.Location, error) {
	if len(raw) == 0 {
		return review.Location{}, fmt.Errorf("missing location")
	}

	if raw[0] == '{' {
		var loc review.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return review.Location{}, fmt.Errorf("decode location: %w", err)
		}
		if loc.File == "" {
			return review.Location{}, fmt.Errorf("location missing file")
		}
		return loc, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return review.Location{}, fmt.Errorf("decode location: %w", err)
	}
	if s == "" {
		return review.Location{}, fmt.Errorf("empty location")
	}

	loc := review.Location{File: s}
	if i := strings.LastIndex(s, ":"); i > 0 {
		lines := s[i+1:]
		start, end := 0, 0
		if n, _ := fmt.Sscanf(lines, "%d-%d", &start, &end); n == 2 {
			loc.File, loc.StartLine, loc.EndLine = s[:i], start, end
			return loc, nil
		}
		if n, _ := fmt.Sscanf(lines, "%d", &start); n == 1 {
			loc.File, loc.StartLine = s[:i], start
			return loc, nil
		}
	}
	return loc, nil
}
