package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/checkrun/internal/history"
)

// newHistoryCommand builds the history listing command.
func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent check runs from the history database",
		Args:  cobra.NoArgs,
		RunE:  historyCommand,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of records to show")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.ListRecent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTASK\tTOOL\tTARGET\tEXIT\tDURATION")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\n",
			rec.Timestamp.Local().Format(time.DateTime),
			rec.Task,
			rec.Tool,
			rec.Target,
			rec.ExitCode,
			rec.Duration.Round(time.Millisecond),
		)
	}
	return w.Flush()
}
