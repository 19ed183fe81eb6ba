// Package verify executes the verification commands attached to constraints.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/gonewton/constraint/pkg/core"
)

// DefaultShell interprets verification commands when none is configured.
const DefaultShell = "sh"

// Runner runs commands through a shell in a working directory.
// Commands are trusted input: there is no sandbox, and no timeout beyond the caller's context.
type Runner struct {
	Shell  string
	Dir    string
	Logger *slog.Logger
}

// NewRunner creates a runner using shell (DefaultShell when empty) in dir.
func NewRunner(shell, dir string, logger *slog.Logger) *Runner {
	if shell == "" {
		shell = DefaultShell
	}
	return &Runner{Shell: shell, Dir: dir, Logger: logger}
}

var _ core.Verifier = (*Runner)(nil)

// Result is the outcome of one command.
type Result struct {
	Command  string
	Passed   bool
	ExitCode int
	Output   string
	Duration time.Duration
}

// Run executes `<shell> -c command`. A non-zero exit is a failed Result, not an error;
// errors are reserved for commands that could not be started at all.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	if r.Logger != nil {
		r.Logger.DebugContext(ctx, "executing verification", "shell", r.Shell, "command", command, "dir", r.Dir)
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Command:  command,
		Output:   combine(stdout.String(), stderr.String()),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Passed = true
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("%s -c %q failed to start: %w", r.Shell, command, err)
	}

	if r.Logger != nil {
		r.Logger.DebugContext(ctx, "verification finished", "passed", res.Passed, "exit_code", res.ExitCode, "duration", res.Duration)
	}
	return res, nil
}

// Verify implements core.Verifier.
func (r *Runner) Verify(ctx context.Context, command string) (bool, string, error) {
	res, err := r.Run(ctx, command)
	if err != nil {
		return false, res.Output, err
	}
	return res.Passed, res.Output, nil
}

// combine joins both streams, keeping whichever is present when the other is empty.
func combine(stdout, stderr string) string {
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return strings.TrimSpace(stdout) + "\n" + strings.TrimSpace(stderr)
	}
}
