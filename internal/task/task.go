// Package task defines the named check tasks and sequences their
// execution against a single target file.
//
// Three checks exist, each mapping to one external tool: mypy (type
// checker), pylint (lint checker), bandit (security scanner). The
// aggregate task "all" runs them in that fixed order with a
// continue-on-error policy: a failing check is recorded but never
// prevents the remaining checks from running.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/checkrun/internal/invoke"
)

// Task names recognized by Run.
const (
	TaskMypy   = "mypy"
	TaskPylint = "pylint"
	TaskBandit = "bandit"
	TaskAll    = "all"
)

// Check describes one external tool invocation.
type Check struct {
	// Name is the task name and, by default, the executable name.
	Name string

	// Path overrides the executable path. Empty means resolve Name on PATH.
	Path string

	// Args are extra arguments inserted before the target path.
	Args []string
}

// DefaultChecks returns the check sequence in its fixed run order.
func DefaultChecks() []Check {
	return []Check{
		{Name: TaskMypy},
		{Name: TaskPylint},
		{Name: TaskBandit},
	}
}

// CheckResult records the outcome of one check.
type CheckResult struct {
	Tool      string
	ExitCode  int
	StartedAt time.Time
	Duration  time.Duration

	// Err is set for failures other than a plain non-zero exit
	// (missing tool, timeout, interruption).
	Err error
}

// Passed reports whether the check succeeded.
func (r CheckResult) Passed() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// Summary aggregates the results of a task run.
type Summary struct {
	Task      string
	Target    string
	StartedAt time.Time
	Duration  time.Duration
	Results   []CheckResult
}

// Failed returns the results of checks that did not pass, in run order.
func (s *Summary) Failed() []CheckResult {
	var failed []CheckResult
	for _, r := range s.Results {
		if !r.Passed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Passed reports whether every check in the run succeeded.
func (s *Summary) Passed() bool {
	return len(s.Failed()) == 0
}

// Invoker runs an external tool and reports its exit status.
// Satisfied by *invoke.Runner.
type Invoker interface {
	Run(ctx context.Context, name string, args ...string) invoke.Result
}

// Logger receives progress messages during a run. Satisfied by
// *logger.ConsoleLogger. May be nil.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogError(message string)
}

// Runner executes named check tasks against a single target file.
// Execution is strictly sequential; each tool invocation blocks until
// the external process terminates.
type Runner struct {
	// Invoker executes the external tools.
	Invoker Invoker

	// Target is the file path handed to each tool. Read-only after
	// construction; passed unchanged to every invocation.
	Target string

	// Checks is the ordered check sequence. Defaults apply when empty.
	Checks []Check

	// Timeout bounds each individual tool invocation. 0 means no limit.
	Timeout time.Duration

	// Log receives progress messages. Optional.
	Log Logger
}

// Run executes the named task and returns its summary.
//
// A single check task returns a *ToolError whenever the check fails,
// carrying the recorded exit status (the tool's own, or the timeout
// sentinel) so callers can propagate it. The aggregate task
// returns an *AggregateError when at least one check failed. Unknown
// names fail with ErrUnknownTask before any tool is invoked.
func (r *Runner) Run(ctx context.Context, name string) (*Summary, error) {
	if name == TaskAll {
		return r.RunAll(ctx)
	}

	for _, check := range r.checks() {
		if check.Name != name {
			continue
		}

		summary := &Summary{Task: name, Target: r.Target, StartedAt: time.Now()}
		result := r.runCheck(ctx, check)
		summary.Results = []CheckResult{result}
		summary.Duration = time.Since(summary.StartedAt)

		if result.Passed() {
			return summary, nil
		}
		return summary, &ToolError{Tool: result.Tool, ExitCode: result.ExitCode, Err: result.Err}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
}

// RunAll executes every check in order with continue-on-error semantics.
// The returned summary always covers all checks that ran; the error is
// nil only when all of them passed.
func (r *Runner) RunAll(ctx context.Context) (*Summary, error) {
	summary := &Summary{Task: TaskAll, Target: r.Target, StartedAt: time.Now()}

	var failed []string
	checks := r.checks()
	for _, check := range checks {
		// An interrupt stops the sequence; a failing check does not.
		if ctx.Err() != nil {
			break
		}

		result := r.runCheck(ctx, check)
		summary.Results = append(summary.Results, result)
		if !result.Passed() {
			failed = append(failed, check.Name)
		}
	}
	summary.Duration = time.Since(summary.StartedAt)

	if ctx.Err() != nil {
		return summary, fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	if len(failed) > 0 {
		return summary, &AggregateError{Failed: failed, Total: len(checks)}
	}
	return summary, nil
}

// runCheck invokes one tool with the target path as its final argument.
func (r *Runner) runCheck(ctx context.Context, check Check) CheckResult {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	path := check.Path
	if path == "" {
		path = check.Name
	}
	args := append(append([]string{}, check.Args...), r.Target)

	if r.Log != nil {
		r.Log.LogInfo(fmt.Sprintf("Running %s on %s", check.Name, r.Target))
	}

	started := time.Now()
	res := r.Invoker.Run(ctx, path, args...)

	result := CheckResult{
		Tool:      check.Name,
		ExitCode:  res.ExitCode,
		StartedAt: started,
		Duration:  res.Duration,
		Err:       res.Err,
	}

	if r.Log != nil {
		if result.Passed() {
			r.Log.LogInfo(fmt.Sprintf("%s passed in %v", check.Name, result.Duration.Round(time.Millisecond)))
		} else if result.Err != nil {
			r.Log.LogError(fmt.Sprintf("%s failed: %v", check.Name, result.Err))
		} else {
			r.Log.LogError(fmt.Sprintf("%s failed with status %d", check.Name, result.ExitCode))
		}
	}

	return result
}

func (r *Runner) checks() []Check {
	if len(r.Checks) > 0 {
		return r.Checks
	}
	return DefaultChecks()
}
