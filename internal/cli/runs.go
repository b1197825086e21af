package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/cmdpilot/internal/agent"
	"github.com/thruflo/cmdpilot/internal/state"
)

// RunReader abstracts run storage for testability.
type RunReader interface {
	ListRuns() ([]*state.Run, error)
	GetRun(id string) (*state.Run, error)
}

// runsStore is the run reader used by the runs command.
// It can be overridden in tests.
var runsStore RunReader

const taskColumnWidth = 48

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "Show recorded runs",
	Long: `Shows runs recorded under .cmdpilot/runs/ (see record_runs and --record).

Without arguments, lists all runs with their ID, start time, exit reason and task.
With an ID, or a unique prefix of one, shows the details of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store := runsStore
	if store == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		store = state.NewStore(cwd)
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listRuns(out, store)
	}
	return showRun(out, store, args[0])
}

func listRuns(out io.Writer, store RunReader) error {
	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	idWidth := len("ID")
	reasonWidth := len("REASON")
	for _, r := range runs {
		idWidth = max(idWidth, len(r.ID))
		reasonWidth = max(reasonWidth, len(r.Reason))
	}
	startedWidth := len(formatTime(time.Time{}))

	fmt.Fprintf(out, "%-*s  %-*s  %-*s  %6s  %s\n", idWidth, "ID", startedWidth, "STARTED", reasonWidth, "REASON", "ROUNDS", "TASK")
	fmt.Fprintf(out, "%s  %s  %s  %s  %s\n",
		strings.Repeat("-", idWidth), strings.Repeat("-", startedWidth), strings.Repeat("-", reasonWidth), "------", "----")

	for _, r := range runs {
		fmt.Fprintf(out, "%-*s  %-*s  %-*s  %6d  %s\n",
			idWidth, r.ID,
			startedWidth, formatTime(r.StartedAt),
			reasonWidth, r.Reason,
			r.Iterations,
			oneLine(r.Task, taskColumnWidth),
		)
	}

	return nil
}

func showRun(out io.Writer, store RunReader, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Fprintln(out, "Run Details")
	fmt.Fprintln(out, "===========")
	fmt.Fprintln(out)

	printField(out, "ID", run.ID)
	printField(out, "Task", run.Task)
	printField(out, "Model", run.Model)
	printField(out, "Endpoint", run.Endpoint)
	printField(out, "Working Dir", run.WorkDir)
	printField(out, "Started", formatTime(run.StartedAt))
	printField(out, "Duration", formatDuration(run.Duration()))
	printField(out, "Reason", run.Reason)
	printField(out, "Rounds", fmt.Sprintf("%d", run.Iterations))
	printField(out, "Executed", fmt.Sprintf("%d", run.Executions))
	if run.LastCommand != "" {
		printField(out, "Last Command", oneLine(run.LastCommand, 0))
	}
	if run.Error != "" {
		printField(out, "Error", run.Error)
	}

	return nil
}

// oneLine collapses whitespace runs and cuts s to limit characters; a limit
// of 0 keeps the whole string.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit > 0 && len([]rune(s)) > limit {
		return agent.Truncate(s, limit-3) + "..."
	}
	return s
}

func printField(out io.Writer, label, value string) {
	fmt.Fprintf(out, "  %-14s %s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
