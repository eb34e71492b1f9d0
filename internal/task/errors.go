package task

import (
	"errors"
	"fmt"
)

// ErrUnknownTask indicates a requested task name is not defined.
// No external tool is invoked when this is returned.
var ErrUnknownTask = errors.New("unknown task")

// ToolError reports a failed check. Carries the tool name and the exit
// status recorded for it so callers can propagate the status as their
// own — including the timeout sentinel, not just plain non-zero exits.
type ToolError struct {
	Tool     string
	ExitCode int

	// Err is the underlying cause when the failure was not a plain
	// non-zero exit (missing tool, timeout).
	Err error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// AggregateError reports that one or more checks in an aggregate run
// failed. The individual failures were already surfaced through the
// tools' own output; this error only carries the overall verdict.
type AggregateError struct {
	// Failed lists the names of checks that exited non-zero, in run order.
	Failed []string
	// Total is the number of checks that were attempted.
	Total int
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("%d of %d checks failed", len(e.Failed), e.Total)
}

// ExitStatus returns the process exit status for an aggregate failure.
// Always 1: the contract is pass/fail, not a failure count.
func (e *AggregateError) ExitStatus() int {
	return 1
}
