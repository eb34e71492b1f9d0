// Package invoke runs external check tools as blocking subprocesses and
// normalizes their termination into an exit code.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrToolNotFound indicates the requested executable could not be resolved
// on PATH (or at its configured path).
var ErrToolNotFound = errors.New("tool not found")

// ExitCodeTimeout is reported when a tool is killed because its context
// deadline expired. Matches the conventional shell timeout(1) status.
const ExitCodeTimeout = 124

// Result captures the outcome of a single tool invocation.
type Result struct {
	// ExitCode is the tool's exit status. 0 means the check passed.
	ExitCode int

	// Duration is the wall-clock time the tool ran.
	Duration time.Duration

	// Err is set for failures that are not a plain non-zero exit:
	// missing executable, cancelled context, start failures.
	Err error
}

// Runner executes external tools with their output streamed through
// unmodified. The diagnostic text a checker prints is its interface;
// the runner never buffers or rewrites it.
type Runner struct {
	// Stdout and Stderr receive the tool's output streams.
	// Defaults to the process's own streams when nil.
	Stdout io.Writer
	Stderr io.Writer

	// Trace, when set, receives a "+ tool args" line before each invocation.
	Trace io.Writer
}

// NewRunner returns a Runner wired to the current process's output streams.
func NewRunner() *Runner {
	return &Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run invokes name with args, blocking until the process exits or ctx is
// done. The tool's stdout/stderr pass through to the runner's writers.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Result {
	if r.Trace != nil {
		fmt.Fprintf(r.Trace, "+ %s\n", strings.Join(append([]string{name}, args...), " "))
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	err := cmd.Run()
	result := Result{Duration: time.Since(start)}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Killed by a signal rather than a clean exit.
			result.ExitCode = 1
		}
		switch ctx.Err() {
		case context.DeadlineExceeded:
			result.ExitCode = ExitCodeTimeout
			result.Err = fmt.Errorf("%s timed out after %v", name, result.Duration.Round(time.Second))
		case context.Canceled:
			result.Err = fmt.Errorf("%s interrupted", name)
		}
	case errors.Is(err, exec.ErrNotFound):
		result.ExitCode = 1
		result.Err = fmt.Errorf("%w: %q is not installed or not on PATH", ErrToolNotFound, name)
	default:
		result.ExitCode = 1
		result.Err = fmt.Errorf("failed to run %s: %w", name, err)
	}

	return result
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
