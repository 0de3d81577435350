package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string, env []string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string, env []string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// ExecAnalyzer runs an analysis capability as a shell command in the
// corpus directory. The task's scope and snapshot reference are passed via
// environment; findings are read as JSON from stdout.
type ExecAnalyzer struct {
	capability string
	command    string
	dir        string
	timeout    time.Duration
	cmd        CommandRunner
}

// NewExecAnalyzer creates an ExecAnalyzer for one capability.
func NewExecAnalyzer(capability, command, dir string, timeout time.Duration, cmd CommandRunner) *ExecAnalyzer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ExecAnalyzer{
		capability: capability,
		command:    command,
		dir:        dir,
		timeout:    timeout,
		cmd:        cmd,
	}
}

func (a *ExecAnalyzer) Capability() string { return a.capability }

// Analyze runs the command and parses findings from stdout. A non-zero
// exit code is a worker failure: analyzers report findings via output,
// not exit status.
func (a *ExecAnalyzer) Analyze(ctx context.Context, task review.TaskDescriptor) ([]review.Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	env := []string{
		"REVIEWLOOP_CAPABILITY=" + task.Capability,
		"REVIEWLOOP_SCOPE=" + strings.Join(task.Scope, " "),
		"REVIEWLOOP_SNAPSHOT=" + task.Snapshot,
	}

	stdout, stderr, exitCode, err := a.cmd.Run(ctx, a.dir, a.command, env)
	if err != nil {
		return nil, fmt.Errorf("run %s worker: %w", a.capability, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("%s worker exited %d: %s", a.capability, exitCode, tail(stderr, 500))
	}

	findings, err := ParseFindings([]byte(stdout))
	if err != nil {
		return nil, fmt.Errorf("parse %s worker output: %w", a.capability, err)
	}
	return findings, nil
}

// ExecFixer runs the fix command for a single finding, then verifies the
// fix by re-scanning the finding's location. The finding's fields are
// passed via environment so the command can target exactly one issue.
type ExecFixer struct {
	command string
	dir     string
	timeout time.Duration
	cmd     CommandRunner
	rescan  Rescanner
}

// NewExecFixer creates an ExecFixer. rescan is required: a fix with no
// verification path is never accepted.
func NewExecFixer(command, dir string, timeout time.Duration, cmd CommandRunner, rescan Rescanner) *ExecFixer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ExecFixer{
		command: command,
		dir:     dir,
		timeout: timeout,
		cmd:     cmd,
		rescan:  rescan,
	}
}

// ApplyFix runs the fix command (exit 0 = applied), then re-scans the
// location and reports the fix verified only when no finding with the
// same dedup key remains.
func (f *ExecFixer) ApplyFix(ctx context.Context, finding review.Finding) (FixResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	env := []string{
		"REVIEWLOOP_SEVERITY=" + string(finding.Severity),
		"REVIEWLOOP_CATEGORY=" + finding.Category,
		"REVIEWLOOP_LOCATION=" + finding.Location.String(),
		"REVIEWLOOP_DESCRIPTION=" + finding.Description,
		"REVIEWLOOP_SUGGESTED_FIX=" + finding.SuggestedFix,
	}

	_, stderr, exitCode, err := f.cmd.Run(runCtx, f.dir, f.command, env)
	if err != nil {
		return FixResult{}, fmt.Errorf("run fixer: %w", err)
	}
	if runCtx.Err() != nil {
		return FixResult{}, runCtx.Err()
	}
	if exitCode != 0 {
		return FixResult{Detail: fmt.Sprintf("fixer exited %d: %s", exitCode, tail(stderr, 500))}, nil
	}

	remaining, err := f.rescan.Rescan(ctx, finding.Location)
	if err != nil {
		return FixResult{Applied: true, Detail: "verification could not run"},
			fmt.Errorf("%w: %v", review.ErrFixUnverifiable, err)
	}

	key := finding.DedupKey()
	for _, r := range remaining {
		if r.DedupKey() == key {
			return FixResult{Applied: true, Detail: "finding still present after fix"}, nil
		}
	}
	return FixResult{Applied: true, Verified: true}, nil
}

// ExecValidator runs the full validation gate as a shell command. Exit 0
// means the gate passed.
type ExecValidator struct {
	command string
	dir     string
	timeout time.Duration
	cmd     CommandRunner
}

// NewExecValidator creates an ExecValidator.
func NewExecValidator(command, dir string, timeout time.Duration, cmd CommandRunner) *ExecValidator {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ExecValidator{command: command, dir: dir, timeout: timeout, cmd: cmd}
}

func (v *ExecValidator) Validate(ctx context.Context) (review.ValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	stdout, stderr, exitCode, err := v.cmd.Run(ctx, v.dir, v.command, nil)
	if err != nil {
		return review.ValidationResult{}, fmt.Errorf("run validation: %w", err)
	}
	if ctx.Err() != nil {
		return review.ValidationResult{}, fmt.Errorf("validation timed out after %s", v.timeout)
	}

	if exitCode == 0 {
		return review.ValidationResult{Passed: true}, nil
	}

	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	return review.ValidationResult{
		Passed:  false,
		Details: fmt.Sprintf("exit code %d: %s", exitCode, tail(combined, 4000)),
	}, nil
}

// tail keeps at most n trailing bytes of s. Error summaries are usually
// at the end of tool output.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…(truncated)\n" + s[len(s)-n:]
}
