// Package console renders a run's progress for a human watching stdout.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/thruflo/cmdpilot/internal/agent"
	"github.com/thruflo/cmdpilot/internal/executor"
	"github.com/thruflo/cmdpilot/internal/parser"
)

const ruleWidth = 50

// BannerInfo is shown once before the first round.
type BannerInfo struct {
	Version   string
	GoVersion string
	Platform  string
	WorkDir   string
	RunID     string
	Model     string
	Endpoint  string
}

// Reporter writes round-by-round progress. It implements agent.Reporter.
type Reporter struct {
	out io.Writer

	title   lipgloss.Style
	heading lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	notice  lipgloss.Style
	muted   lipgloss.Style
}

var _ agent.Reporter = (*Reporter)(nil)

// NewReporter creates a Reporter writing to out. Styling follows out's
// terminal capabilities, so a pipe or file gets plain text.
func NewReporter(out io.Writer) *Reporter {
	r := lipgloss.NewRenderer(out)
	return &Reporter{
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		label:   r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   r.NewStyle().Faint(true),
	}
}

// Banner prints the startup summary.
func (r *Reporter) Banner(info BannerInfo) {

	r.println(r.title.Render("=== cmdpilot " + info.Version + " ==="))
	r.field("Go version", info.GoVersion)
	r.field("Platform", info.Platform)
	r.field("Working dir", info.WorkDir)
	r.field("Run ID", info.RunID)
	r.field("Model", info.Model)
	r.field("Endpoint", info.Endpoint)
	r.println(strings.Repeat("=", ruleWidth))
}

// Notice prints an informational line outside of any round.
func (r *Reporter) Notice(format string, args ...any) {
	r.println(r.notice.Render(fmt.Sprintf(format, args...)))
}

// RoundStarted prints the round header and the task being sent.
func (r *Reporter) RoundStarted(iteration, max int, task string) {

	r.println("")
	r.println(r.heading.Render(fmt.Sprintf("=== Round %d/%d ===", iteration, max)))
	r.println(r.label.Render("Task sent to model:") + " " + task)
}

// ModelReplied prints the raw reply.
func (r *Reporter) ModelReplied(reply string) {

	r.println("")
	r.println(r.label.Render("Model reply:"))
	r.println(reply)
}

// CommandParsed prints the extracted command and how it was found.
func (r *Reporter) CommandParsed(extraction parser.Extraction) {

	r.println("")
	r.println(r.label.Render("Parsed command:") + " " + r.muted.Render("("+extraction.Source.String()+")"))
	r.println(extraction.Command)
}

// CommandSkipped notes that a reply carried an error instead of a command.
func (r *Reporter) CommandSkipped(command string) {

	r.println(r.failure.Render("Error detected in reply, not executing:") + " " + command)
}

// CommandFinished prints the exit code and the display-truncated output.
func (r *Reporter) CommandFinished(result executor.Result, displayOutput string) {

	status := r.success
	if result.ExitCode != 0 {
		status = r.failure
	}

	header := fmt.Sprintf("Command result (exit code: %d", result.ExitCode)
	if result.Duration > 0 {
		header += ", " + result.Duration.Round(time.Millisecond).String()
	}
	header += "):"

	r.println("")
	r.println(status.Render(header))
	r.println(displayOutput)
}

// Stopped prints why the run ended.
func (r *Reporter) Stopped(reason agent.ExitReason, message string) {

	style := r.notice
	if reason == agent.ExitReasonExitCommand {
		style = r.success
	}
	r.println("")
	r.println(style.Render(message))
}

func (r *Reporter) field(name, value string) {
	if value == "" {
		return
	}
	r.println(r.label.Render(name+":") + " " + value)
}

func (r *Reporter) println(s string) {
	fmt.Fprintln(r.out, s)
}
