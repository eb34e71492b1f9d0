// Package report formats check-run summaries for humans: a colorized
// console summary, a markdown report saved after each run, and an HTML
// rendering of that report.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/yuin/goldmark"

	"github.com/harrison/checkrun/internal/filelock"
	"github.com/harrison/checkrun/internal/task"
)

// MarkdownFileName is the report saved under the state directory after
// each run.
const MarkdownFileName = "last-run.md"

// BuildMarkdown renders a task summary as a markdown report.
func BuildMarkdown(summary *task.Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Check run: %s\n\n", summary.Task))
	sb.WriteString(fmt.Sprintf("- Target: `%s`\n", summary.Target))
	sb.WriteString(fmt.Sprintf("- Started: %s\n", summary.StartedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- Duration: %v\n\n", summary.Duration.Round(time.Millisecond)))

	sb.WriteString("| Check | Status | Exit code | Duration |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, r := range summary.Results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %v |\n",
			r.Tool, status, r.ExitCode, r.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	if failed := summary.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, r.Tool)
		}
		sb.WriteString(fmt.Sprintf("**Summary:** %d check(s) failed: %s\n",
			len(failed), strings.Join(names, ", ")))
	} else {
		sb.WriteString("**Summary:** all checks passed\n")
	}

	return sb.String()
}

// Save writes the markdown report for a summary into the state directory,
// atomically so a concurrent reader never sees a torn file.
func Save(stateDir string, summary *task.Summary) (string, error) {
	path := filepath.Join(stateDir, MarkdownFileName)
	if err := filelock.AtomicWrite(path, []byte(BuildMarkdown(summary))); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

// Load reads the last saved markdown report from the state directory.
func Load(stateDir string) ([]byte, error) {
	path := filepath.Join(stateDir, MarkdownFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no saved report at %s; run the checks first", path)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

// RenderHTML converts a markdown report to HTML.
func RenderHTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// PrintSummary writes a per-check status summary to w. Status tags are
// colorized when w is a terminal.
func PrintSummary(w io.Writer, summary *task.Summary) {
	useColor := writerIsTerminal(w)

	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	if !useColor {
		pass = fmt.Sprint
		fail = fmt.Sprint
	}

	fmt.Fprintf(w, "\nCheck summary for %s:\n", summary.Target)
	for _, r := range summary.Results {
		if r.Passed() {
			fmt.Fprintf(w, "  %s  %s (%v)\n", pass("PASS"), r.Tool, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(w, "  %s  %s (exit %d, %v)\n", fail("FAIL"), r.Tool, r.ExitCode, r.Duration.Round(time.Millisecond))
		}
	}

	if failed := summary.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "%d of %d checks failed\n", len(failed), len(summary.Results))
	} else {
		fmt.Fprintf(w, "All %d checks passed\n", len(summary.Results))
	}
}

// writerIsTerminal reports whether w is an interactive terminal.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
