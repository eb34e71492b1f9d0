package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/checkrun/internal/report"
)

// newReportCommand builds the report command, which prints the report
// saved by the most recent aggregate run.
func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the report from the last aggregate run",
		Long: `Show the markdown report saved by the last "all" run.

With --html the report is rendered to HTML on stdout, suitable for
redirecting into a file.`,
		Args: cobra.NoArgs,
		RunE: reportCommand,
	}

	cmd.Flags().Bool("html", false, "Render the report as HTML")

	return cmd
}

func reportCommand(cmd *cobra.Command, args []string) error {
	markdown, err := report.Load(stateDirName)
	if err != nil {
		return err
	}

	if html, _ := cmd.Flags().GetBool("html"); html {
		rendered, err := report.RenderHTML(markdown)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(rendered)
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), string(markdown))
	return err
}
