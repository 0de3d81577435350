package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// --- Mocks ---

type cmdResult struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

type mockCmd struct {
	calls   []string // commands, in order
	envs    [][]string
	results []cmdResult
	idx     int
}

func (m *mockCmd) Run(ctx context.Context, dir string, command string, env []string) (string, string, int, error) {
	m.calls = append(m.calls, command)
	m.envs = append(m.envs, env)
	if m.idx >= len(m.results) {
		return "", "", 0, nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.stdout, r.stderr, r.exitCode, r.err
}

type stubAnalyzer struct {
	capability string
	findings   []review.Finding
	err        error
	tasks      []review.TaskDescriptor
}

func (s *stubAnalyzer) Capability() string { return s.capability }

func (s *stubAnalyzer) Analyze(ctx context.Context, task review.TaskDescriptor) ([]review.Finding, error) {
	s.tasks = append(s.tasks, task)
	return s.findings, s.err
}

// --- ParseFindings ---

func TestParseFindingsArray(t *testing.T) {
	out := `[
	  {"severity": "critical", "category": "injection", "location": "db.go:42", "description": "raw SQL concat"},
	  {"severity": "WARNING", "category": "n-plus-one", "location": {"file": "repo.go", "start_line": 10, "end_line": 30}, "description": "query in loop", "suggested_fix": "batch the query"}
	]`
	findings, err := ParseFindings([]byte(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}

	f := findings[0]
	if f.Severity != review.SeverityCritical || f.Category != "injection" {
		t.Errorf("first finding = %+v", f)
	}
	if f.Location.File != "db.go" || f.Location.StartLine != 42 {
		t.Errorf("location = %+v", f.Location)
	}

	f = findings[1]
	if f.Severity != review.SeverityWarning {
		t.Errorf("severity should be lowercased: %q", f.Severity)
	}
	if f.Location.EndLine != 30 {
		t.Errorf("end line = %d, want 30", f.Location.EndLine)
	}
	if f.SuggestedFix != "batch the query" {
		t.Errorf("suggested fix = %q", f.SuggestedFix)
	}
}

func TestParseFindingsEnvelope(t *testing.T) {
	out := `{"findings": [{"severity": "suggestion", "category": "style", "location": "a.go", "description": "rename"}]}`
	findings, err := ParseFindings([]byte(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(findings) != 1 || findings[0].Location.File != "a.go" {
		t.Errorf("findings = %+v", findings)
	}
}

func TestParseFindingsEmpty(t *testing.T) {
	for _, in := range []string{"", "  \n", "[]", `{"findings": []}`} {
		findings, err := ParseFindings([]byte(in))
		if err != nil {
			t.Errorf("parse %q: %v", in, err)
		}
		if len(findings) != 0 {
			t.Errorf("parse %q: got %d findings", in, len(findings))
		}
	}
}

func TestParseFindingsCoercesUnknownSeverity(t *testing.T) {
	out := `[{"severity": "catastrophic", "category": "style", "location": "a.go", "description": "x"}]`
	findings, err := ParseFindings([]byte(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if findings[0].Severity != review.SeveritySuggestion {
		t.Errorf("severity = %q, want coerced suggestion", findings[0].Severity)
	}
}

func TestParseFindingsErrors(t *testing.T) {
	bad := []string{
		`[{"severity": "critical", "category": "x", "description": "no location"}]`,
		`[{"severity": "critical", "category": "x", "location": "a.go"}]`, // no description
		`not json`,
		`[{"location": ""}]`,
	}
	for _, in := range bad {
		if _, err := ParseFindings([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestParseLocationRange(t *testing.T) {
	findings, err := ParseFindings([]byte(`[{"severity": "warning", "category": "x", "location": "pkg/a.go:10-20", "description": "d"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	loc := findings[0].Location
	if loc.File != "pkg/a.go" || loc.StartLine != 10 || loc.EndLine != 20 {
		t.Errorf("location = %+v", loc)
	}
}

// --- ExecAnalyzer ---

func TestExecAnalyzer(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{
		{stdout: `[{"severity": "critical", "category": "injection", "location": "db.go:3", "description": "bad"}]`},
	}}
	a := NewExecAnalyzer("security", "scan --security", "/corpus", time.Minute, cmd)

	findings, err := a.Analyze(context.Background(), review.TaskDescriptor{
		Capability: "security",
		Scope:      []string{"db.go", "web.go"},
		Snapshot:   "abc123",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings", len(findings))
	}

	env := strings.Join(cmd.envs[0], "\n")
	for _, want := range []string{"REVIEWLOOP_CAPABILITY=security", "REVIEWLOOP_SCOPE=db.go web.go", "REVIEWLOOP_SNAPSHOT=abc123"} {
		if !strings.Contains(env, want) {
			t.Errorf("env missing %q", want)
		}
	}
}

func TestExecAnalyzerNonZeroExit(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{stderr: "boom", exitCode: 2}}}
	a := NewExecAnalyzer("quality", "scan", "/corpus", time.Minute, cmd)

	_, err := a.Analyze(context.Background(), review.TaskDescriptor{Capability: "quality"})
	if err == nil || !strings.Contains(err.Error(), "exited 2") {
		t.Errorf("expected exit-code error, got %v", err)
	}
}

// --- ExecFixer ---

func fixFinding() review.Finding {
	return review.Finding{
		Severity:    review.SeverityCritical,
		Category:    "injection",
		Location:    review.Location{File: "db.go", StartLine: 3},
		Description: "raw SQL concat",
	}
}

func TestExecFixerVerified(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{exitCode: 0}}}
	rescan := &stubAnalyzer{capability: "security"} // clean rescan
	f := NewExecFixer("fix", "/corpus", time.Minute, cmd, NewScopedRescan([]Analyzer{rescan}))

	res, err := f.ApplyFix(context.Background(), fixFinding())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied || !res.Verified {
		t.Errorf("result = %+v, want applied and verified", res)
	}

	// Rescan was narrowed to the finding's file.
	if len(rescan.tasks) != 1 || len(rescan.tasks[0].Scope) != 1 || rescan.tasks[0].Scope[0] != "db.go" {
		t.Errorf("rescan tasks = %+v", rescan.tasks)
	}

	env := strings.Join(cmd.envs[0], "\n")
	if !strings.Contains(env, "REVIEWLOOP_LOCATION=db.go:3") {
		t.Errorf("fixer env missing location: %s", env)
	}
}

func TestExecFixerStillPresent(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{exitCode: 0}}}
	rescan := &stubAnalyzer{capability: "security", findings: []review.Finding{fixFinding()}}
	f := NewExecFixer("fix", "/corpus", time.Minute, cmd, NewScopedRescan([]Analyzer{rescan}))

	res, err := f.ApplyFix(context.Background(), fixFinding())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied || res.Verified {
		t.Errorf("result = %+v, want applied but unverified", res)
	}
}

func TestExecFixerCommandFails(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{stderr: "cannot fix", exitCode: 1}}}
	f := NewExecFixer("fix", "/corpus", time.Minute, cmd, NewScopedRescan(nil))

	res, err := f.ApplyFix(context.Background(), fixFinding())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied || res.Verified {
		t.Errorf("result = %+v, want not applied", res)
	}
	if !strings.Contains(res.Detail, "exited 1") {
		t.Errorf("detail = %q", res.Detail)
	}
}

func TestExecFixerUnverifiable(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{exitCode: 0}}}
	rescan := &stubAnalyzer{capability: "security", err: errors.New("scanner crashed")}
	f := NewExecFixer("fix", "/corpus", time.Minute, cmd, NewScopedRescan([]Analyzer{rescan}))

	res, err := f.ApplyFix(context.Background(), fixFinding())
	if !errors.Is(err, review.ErrFixUnverifiable) {
		t.Errorf("err = %v, want ErrFixUnverifiable", err)
	}
	if !res.Applied || res.Verified {
		t.Errorf("result = %+v, want applied but unverified", res)
	}
}

// --- ExecValidator ---

func TestExecValidatorPass(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{exitCode: 0}}}
	v := NewExecValidator("npm test", "/corpus", time.Minute, cmd)

	res, err := v.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Passed {
		t.Errorf("result = %+v, want passed", res)
	}
}

func TestExecValidatorFail(t *testing.T) {
	cmd := &mockCmd{results: []cmdResult{{stdout: "1 test failed", exitCode: 1}}}
	v := NewExecValidator("npm test", "/corpus", time.Minute, cmd)

	res, err := v.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Passed {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Details, "1 test failed") {
		t.Errorf("details = %q", res.Details)
	}
}
