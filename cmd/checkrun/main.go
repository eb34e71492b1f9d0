package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/checkrun/internal/cmd"
	"github.com/harrison/checkrun/internal/task"
)

func main() {
	// Interrupt cancels the run context; an in-flight tool is killed and
	// the process exits non-zero.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// A failed check exits with the tool's own status; the tool's
		// diagnostics have already been streamed, so no extra noise here.
		var toolErr *task.ToolError
		if errors.As(err, &toolErr) {
			os.Exit(toolErr.ExitCode)
		}
		var aggErr *task.AggregateError
		if errors.As(err, &aggErr) {
			os.Exit(aggErr.ExitStatus())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
