package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/checkrun/internal/config"
	"github.com/harrison/checkrun/internal/filelock"
	"github.com/harrison/checkrun/internal/history"
	"github.com/harrison/checkrun/internal/invoke"
	"github.com/harrison/checkrun/internal/logger"
	"github.com/harrison/checkrun/internal/report"
	"github.com/harrison/checkrun/internal/task"
)

// stateDirName is the per-workspace directory holding config, lock,
// history database and saved reports.
const stateDirName = ".checkrun"

// newCheckCommand builds the command for a single named check.
// The optional positional argument overrides the configured target.
func newCheckCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s [target]", name),
		Short: short,
		Long: short + `.

The tool's stdout and stderr stream through unmodified, and its exit
status becomes the checkrun process's own exit status.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, args, name)
		},
	}
}

// newAllCommand builds the aggregate command. Equivalent to invoking
// checkrun with no subcommand.
func newAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all [target]",
		Short: "Run mypy, pylint and bandit in order, continuing past failures",
		Long: `Run all three checks in fixed order: mypy, then pylint, then bandit.

A non-zero exit from any check is recorded but does not halt the
remaining checks. The process exits 0 only if all three passed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, args, task.TaskAll)
		},
	}
}

// runContext bundles everything a check run needs: merged config, logger,
// the task runner, the optional history store, and the workspace run lock.
type runContext struct {
	cfg    *config.Config
	log    *logger.ConsoleLogger
	runner *task.Runner
	store  *history.Store
	lock   *filelock.RunLock
}

// newRunContext loads configuration, acquires the run lock and opens the
// history store. Callers must Close the returned context.
func newRunContext(cmd *cobra.Command, args []string) (*runContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	target, _ := cmd.Flags().GetString("target")
	if len(args) > 0 {
		target = args[0]
	}
	logLevel, _ := cmd.Flags().GetString("log-level")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	var timeout *time.Duration
	if timeoutStr, _ := cmd.Flags().GetString("timeout"); timeoutStr != "" {
		parsed, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", timeoutStr, err)
		}
		timeout = &parsed
	}

	cfg.MergeWithFlags(&target, timeout, &logLevel, &noHistory)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	lock, err := filelock.NewRunLock(filepath.Join(stateDirName, "run.lock"))
	if err != nil {
		return nil, err
	}
	acquired, err := lock.TryAcquire()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another checkrun instance is already running in this workspace")
	}

	rc := &runContext{
		cfg:  cfg,
		log:  log,
		lock: lock,
		runner: &task.Runner{
			Invoker: invoke.NewRunner(),
			Target:  cfg.Target,
			Checks:  checksFromConfig(cfg),
			Timeout: cfg.Timeout,
			Log:     log,
		},
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			// History is a convenience; a broken database never blocks checks.
			log.LogWarn(fmt.Sprintf("history disabled: %v", err))
		} else {
			rc.store = store
			if deleted, err := store.CleanupOldRuns(cmd.Context(), cfg.History.KeepDays); err != nil {
				log.LogWarn(fmt.Sprintf("history cleanup failed: %v", err))
			} else if deleted > 0 {
				log.LogDebug(fmt.Sprintf("pruned %d old history records", deleted))
			}
		}
	}

	return rc, nil
}

// Close releases the run lock and the history store.
func (rc *runContext) Close() {
	if rc.store != nil {
		if err := rc.store.Close(); err != nil {
			rc.log.LogWarn(fmt.Sprintf("closing history store: %v", err))
		}
	}
	if rc.lock != nil {
		if err := rc.lock.Release(); err != nil {
			rc.log.LogWarn(fmt.Sprintf("releasing run lock: %v", err))
		}
	}
}

// runTask executes the named task and handles summary, history and
// report side effects. The returned error carries the exit status.
func runTask(cmd *cobra.Command, args []string, name string) error {
	rc, err := newRunContext(cmd, args)
	if err != nil {
		return err
	}
	defer rc.Close()

	summary, runErr := rc.runner.Run(cmd.Context(), name)
	if summary == nil {
		return runErr
	}

	if rc.store != nil {
		if _, err := rc.store.RecordRun(cmd.Context(), summary); err != nil {
			rc.log.LogWarn(fmt.Sprintf("recording run history: %v", err))
		}
	}

	if name == task.TaskAll {
		report.PrintSummary(os.Stdout, summary)
		if path, err := report.Save(stateDirName, summary); err != nil {
			rc.log.LogWarn(err.Error())
		} else {
			rc.log.LogDebug(fmt.Sprintf("report saved to %s", path))
		}
	}

	return runErr
}

// loadConfig loads the config file named by --config, or the workspace
// default when the flag is unset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// checksFromConfig applies per-tool config overrides to the fixed
// check sequence. Order never changes.
func checksFromConfig(cfg *config.Config) []task.Check {
	checks := task.DefaultChecks()
	for i, check := range checks {
		if override, ok := cfg.Checks[check.Name]; ok {
			checks[i].Path = override.Path
			checks[i].Args = override.Args
		}
	}
	return checks
}
