// Package cmd wires the checkrun command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/checkrun/internal/task"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for checkrun
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkrun",
		Short: "Static-analysis runner for a single Python source file",
		Long: `Checkrun sequences three static-analysis tools against one target file:
mypy (type checker), pylint (lint checker), and bandit (security scanner).

Run bare (or as "checkrun all") it executes all three in fixed order with a
continue-on-error policy: a failing check never prevents the remaining
checks from running, and the process exits 0 only if all three passed.
Each tool's diagnostics stream through unmodified.

Configuration is loaded from .checkrun/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// Errors are reported once, by main, so tool exit codes can be
		// propagated without extra noise.
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, args, task.TaskAll)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .checkrun/config.yaml)")
	cmd.PersistentFlags().String("target", "", "File to check (overrides config)")
	cmd.PersistentFlags().String("timeout", "", "Per-tool time limit (e.g. 30s, 5m)")
	cmd.PersistentFlags().String("log-level", "", "Log verbosity: trace, debug, info, warn, error")
	cmd.PersistentFlags().Bool("no-history", false, "Do not record this run in the history database")

	// Add subcommands
	cmd.AddCommand(newCheckCommand(task.TaskMypy, "Run the mypy type checker on the target file"))
	cmd.AddCommand(newCheckCommand(task.TaskPylint, "Run the pylint lint checker on the target file"))
	cmd.AddCommand(newCheckCommand(task.TaskBandit, "Run the bandit security scanner on the target file"))
	cmd.AddCommand(newAllCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newReportCommand())

	return cmd
}
