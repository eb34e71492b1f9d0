package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/checkrun/internal/invoke"
)

// fakeInvoker scripts exit codes and errors per tool and records invocations.
type fakeInvoker struct {
	codes map[string]int
	errs  map[string]error
	calls []string
	args  map[string][]string
}

func (f *fakeInvoker) Run(ctx context.Context, name string, args ...string) invoke.Result {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return invoke.Result{ExitCode: f.codes[name], Err: f.errs[name]}
}

func newRunner(codes map[string]int) (*Runner, *fakeInvoker) {
	inv := &fakeInvoker{codes: codes}
	return &Runner{Invoker: inv, Target: "board_annotate.py"}, inv
}

func TestRunAll_AllPass(t *testing.T) {
	runner, inv := newRunner(map[string]int{})

	summary, err := runner.RunAll(context.Background())

	require.NoError(t, err)
	assert.True(t, summary.Passed())
	assert.Equal(t, []string{"mypy", "pylint", "bandit"}, inv.calls)
	assert.Len(t, summary.Results, 3)
}

func TestRunAll_ContinueOnError(t *testing.T) {
	// Every non-empty failing subset must still invoke all three tools.
	tests := []struct {
		name    string
		codes   map[string]int
		failing []string
	}{
		{"mypy fails", map[string]int{"mypy": 1}, []string{"mypy"}},
		{"pylint fails", map[string]int{"pylint": 4}, []string{"pylint"}},
		{"bandit fails", map[string]int{"bandit": 2}, []string{"bandit"}},
		{"mypy and pylint fail", map[string]int{"mypy": 1, "pylint": 16}, []string{"mypy", "pylint"}},
		{"mypy and bandit fail", map[string]int{"mypy": 1, "bandit": 2}, []string{"mypy", "bandit"}},
		{"pylint and bandit fail", map[string]int{"pylint": 2, "bandit": 1}, []string{"pylint", "bandit"}},
		{"all fail", map[string]int{"mypy": 1, "pylint": 1, "bandit": 1}, []string{"mypy", "pylint", "bandit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, inv := newRunner(tt.codes)

			summary, err := runner.RunAll(context.Background())

			// All three tools ran despite the failures.
			assert.Equal(t, []string{"mypy", "pylint", "bandit"}, inv.calls)

			var aggErr *AggregateError
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tt.failing, aggErr.Failed)
			assert.Equal(t, 3, aggErr.Total)
			assert.Equal(t, 1, aggErr.ExitStatus())
			assert.False(t, summary.Passed())
		})
	}
}

func TestRunAll_MixedExitCodes(t *testing.T) {
	// mypy exits 1, pylint 0, bandit 2: all three run, aggregate fails.
	runner, inv := newRunner(map[string]int{"mypy": 1, "bandit": 2})

	summary, err := runner.RunAll(context.Background())

	assert.Equal(t, []string{"mypy", "pylint", "bandit"}, inv.calls)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, 1, summary.Results[0].ExitCode)
	assert.Equal(t, 0, summary.Results[1].ExitCode)
	assert.Equal(t, 2, summary.Results[2].ExitCode)

	var aggErr *AggregateError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 1, aggErr.ExitStatus())
}

func TestRun_SingleCheck_PropagatesExitCode(t *testing.T) {
	runner, inv := newRunner(map[string]int{"pylint": 3})

	summary, err := runner.Run(context.Background(), "pylint")

	// Only the requested tool ran.
	assert.Equal(t, []string{"pylint"}, inv.calls)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "pylint", toolErr.Tool)
	assert.Equal(t, 3, toolErr.ExitCode)
	require.Len(t, summary.Results, 1)
}

func TestRun_SingleCheck_TimeoutPropagatesExitCode(t *testing.T) {
	// A timed-out tool is recorded with the timeout sentinel, and that
	// status propagates like any other exit code.
	inv := &fakeInvoker{
		codes: map[string]int{"mypy": invoke.ExitCodeTimeout},
		errs:  map[string]error{"mypy": errors.New("mypy timed out after 10s")},
	}
	runner := &Runner{Invoker: inv, Target: "board_annotate.py"}

	_, err := runner.Run(context.Background(), "mypy")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, invoke.ExitCodeTimeout, toolErr.ExitCode)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRun_SingleCheck_ToolNotFound(t *testing.T) {
	inv := &fakeInvoker{
		codes: map[string]int{"bandit": 1},
		errs:  map[string]error{"bandit": fmt.Errorf("%w: %q is not installed or not on PATH", invoke.ErrToolNotFound, "bandit")},
	}
	runner := &Runner{Invoker: inv, Target: "board_annotate.py"}

	_, err := runner.Run(context.Background(), "bandit")

	// The cause stays inspectable through the tool error.
	require.ErrorIs(t, err, invoke.ErrToolNotFound)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Contains(t, err.Error(), "not installed")
}

func TestRun_SingleCheck_Pass(t *testing.T) {
	runner, inv := newRunner(map[string]int{})

	summary, err := runner.Run(context.Background(), "mypy")

	require.NoError(t, err)
	assert.Equal(t, []string{"mypy"}, inv.calls)
	assert.True(t, summary.Passed())
}

func TestRun_All_DelegatesToRunAll(t *testing.T) {
	runner, inv := newRunner(map[string]int{})

	summary, err := runner.Run(context.Background(), TaskAll)

	require.NoError(t, err)
	assert.Equal(t, []string{"mypy", "pylint", "bandit"}, inv.calls)
	assert.Equal(t, TaskAll, summary.Task)
}

func TestRun_UnknownTask(t *testing.T) {
	runner, inv := newRunner(map[string]int{})

	summary, err := runner.Run(context.Background(), "flake8")

	require.ErrorIs(t, err, ErrUnknownTask)
	assert.Nil(t, summary)
	// No external tool was invoked.
	assert.Empty(t, inv.calls)
}

func TestRunCheck_TargetIsFinalArgument(t *testing.T) {
	inv := &fakeInvoker{codes: map[string]int{}}
	runner := &Runner{
		Invoker: inv,
		Target:  "board_annotate.py",
		Checks: []Check{
			{Name: "pylint", Args: []string{"--disable=C0301"}},
		},
	}

	_, err := runner.Run(context.Background(), "pylint")

	require.NoError(t, err)
	assert.Equal(t, []string{"--disable=C0301", "board_annotate.py"}, inv.args["pylint"])
}

func TestRunCheck_PathOverride(t *testing.T) {
	inv := &fakeInvoker{codes: map[string]int{}}
	runner := &Runner{
		Invoker: inv,
		Target:  "app.py",
		Checks: []Check{
			{Name: "mypy", Path: "/opt/venv/bin/mypy"},
		},
	}

	_, err := runner.Run(context.Background(), "mypy")

	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/venv/bin/mypy"}, inv.calls)
}

func TestRunAll_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, inv := newRunner(map[string]int{})
	summary, err := runner.RunAll(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, inv.calls)
	assert.Empty(t, summary.Results)
}
