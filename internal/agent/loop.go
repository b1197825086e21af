// Package agent drives the ask-parse-execute cycle: it sends the current
// task to the model, extracts a shell command from the reply, runs it, and
// turns the output into the next task.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/thruflo/cmdpilot/internal/executor"
	"github.com/thruflo/cmdpilot/internal/llm"
	"github.com/thruflo/cmdpilot/internal/logging"
	"github.com/thruflo/cmdpilot/internal/parser"
)

// ExitReason indicates why the loop stopped.
type ExitReason int

const (
	ExitReasonUnknown       ExitReason = iota
	ExitReasonEmptyTask                // Blank task, nothing ran
	ExitReasonExitCommand              // Model asked to finish
	ExitReasonEmptyResponse            // Model returned no text
	ExitReasonMaxIterations            // Hit iteration limit
	ExitReasonCancelled                // Caller's context ended
)

// String returns a human-readable description of the exit reason.
func (r ExitReason) String() string {
	switch r {
	case ExitReasonEmptyTask:
		return "empty task"
	case ExitReasonExitCommand:
		return "exit command"
	case ExitReasonEmptyResponse:
		return "empty response"
	case ExitReasonMaxIterations:
		return "max iterations"
	case ExitReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Messages shown when the run stops.
const (
	MsgEmptyTask     = "task must not be empty"
	MsgEmptyResponse = "model returned an empty response"
	MsgExitCommand   = "received exit command, stopping"
	MsgCancelled     = "interrupted, stopping"
)

// MaxIterationsMessage is shown when the iteration limit is reached.
func MaxIterationsMessage(max int) string {
	return fmt.Sprintf("reached the maximum number of iterations (%d), stopping", max)
}

// Result contains the outcome of a run.
type Result struct {
	Reason      ExitReason
	RunID       string
	Iterations  int
	Executions  int
	LastCommand string
	History     []llm.Message
	Error       error
}

// Reporter receives the observable steps of a run. Implementations must not
// influence control flow.
type Reporter interface {
	RoundStarted(iteration, max int, task string)
	ModelReplied(reply string)
	CommandParsed(extraction parser.Extraction)
	CommandSkipped(command string)
	CommandFinished(result executor.Result, displayOutput string)
	Stopped(reason ExitReason, message string)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) RoundStarted(int, int, string)           {}
func (NopReporter) ModelReplied(string)                     {}
func (NopReporter) CommandParsed(parser.Extraction)         {}
func (NopReporter) CommandSkipped(string)                   {}
func (NopReporter) CommandFinished(executor.Result, string) {}
func (NopReporter) Stopped(ExitReason, string)              {}

// Limits bounds a run.
type Limits struct {
	MaxIterations int
	HistorySize   int
	// DisplayChars caps output shown on the console.
	DisplayChars int
	// PromptChars caps output embedded in the next task.
	PromptChars int
}

// DefaultLimits returns the standard limits.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations: 20,
		HistorySize:   DefaultHistorySize,
		DisplayChars:  1500,
		PromptChars:   3000,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxIterations <= 0 {
		l.MaxIterations = d.MaxIterations
	}
	if l.HistorySize <= 0 {
		l.HistorySize = d.HistorySize
	}
	if l.DisplayChars <= 0 {
		l.DisplayChars = d.DisplayChars
	}
	if l.PromptChars <= 0 {
		l.PromptChars = d.PromptChars
	}
	return l
}

// Loop runs tasks against a model and a command executor.
type Loop struct {
	client   llm.Client
	executor executor.Executor
	reporter Reporter
	logger   *logging.Logger
	limits   Limits
	runID    string
}

// LoopOptions holds configuration for creating a Loop instance.
type LoopOptions struct {
	Client   llm.Client
	Executor executor.Executor
	Reporter Reporter
	Logger   *logging.Logger
	Limits   Limits
	// RunID identifies the run in logs; generated when empty.
	RunID string
}

// NewLoop creates a new Loop with the given options.
func NewLoop(opts LoopOptions) *Loop {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Loop{
		client:   opts.Client,
		executor: opts.Executor,
		reporter: reporter,
		logger:   logger,
		limits:   opts.Limits.withDefaults(),
		runID:    opts.RunID,
	}
}

// Limits returns the effective limits.
func (l *Loop) Limits() Limits {
	return l.limits
}

// Run drives rounds for task until an exit condition is met.
func (l *Loop) Run(ctx context.Context, task string) Result {
	st := NewState(l.runID, strings.TrimSpace(task), l.limits.HistorySize)
	log := l.logger.With("run_id", st.RunID)

	if st.Task == "" {
		return l.stop(log, st, ExitReasonEmptyTask, MsgEmptyTask)
	}

	for st.Iteration < l.limits.MaxIterations {
		if ctx.Err() != nil {
			res := l.stop(log, st, ExitReasonCancelled, MsgCancelled)
			res.Error = ctx.Err()
			return res
		}

		st.Iteration++
		if reason, msg, done := l.runIteration(ctx, log.With("iteration", st.Iteration), st); done {
			return l.stop(log, st, reason, msg)
		}
	}

	return l.stop(log, st, ExitReasonMaxIterations, MaxIterationsMessage(l.limits.MaxIterations))
}

// runIteration performs one round. It reports whether the run is over and,
// if so, why.
func (l *Loop) runIteration(ctx context.Context, log *logging.Logger, st *State) (ExitReason, string, bool) {
	log.Debug("round started", "task_chars", len([]rune(st.Task)))
	l.reporter.RoundStarted(st.Iteration, l.limits.MaxIterations, st.Task)

	reply := l.ask(ctx, log, st)
	if strings.TrimSpace(reply) == "" {
		return ExitReasonEmptyResponse, MsgEmptyResponse, true
	}
	l.reporter.ModelReplied(reply)

	extraction := parser.Parse(reply)
	command := extraction.Command
	st.LastCommand = command
	l.reporter.CommandParsed(extraction)

	if IsExitCommand(command) {
		log.Info("exit command received", "command", command)
		return ExitReasonExitCommand, MsgExitCommand, true
	}

	if HasFailureMarker(command) {
		log.Info("failure marker in command, not executing", "command", command)
		l.reporter.CommandSkipped(command)
		st.Task = RetryInstruction
		return ExitReasonUnknown, "", false
	}

	result := l.executor.Execute(ctx, command)
	st.Executions++
	log.Debug("command finished",
		"command", command,
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"duration", result.Duration,
	)
	l.reporter.CommandFinished(result, Truncate(result.Output, l.limits.DisplayChars))

	st.Task = Continuation(Truncate(result.Output, l.limits.PromptChars))
	return ExitReasonUnknown, "", false
}

// ask sends the task after the current history. A failed call becomes a
// failure-marker reply and leaves history untouched.
func (l *Loop) ask(ctx context.Context, log *logging.Logger, st *State) string {
	reply, err := l.client.Chat(ctx, st.History.WithPrompt(st.Task))
	if err != nil {
		log.Warn("model call failed", "error", err)
		return APIFailureReply(err)
	}
	st.History.AppendExchange(st.Task, reply)
	return reply
}

func (l *Loop) stop(log *logging.Logger, st *State, reason ExitReason, message string) Result {
	log.Info("run stopped",
		"reason", reason.String(),
		"iterations", st.Iteration,
		"executions", st.Executions,
	)
	l.reporter.Stopped(reason, message)
	return Result{
		Reason:      reason,
		RunID:       st.RunID,
		Iterations:  st.Iteration,
		Executions:  st.Executions,
		LastCommand: st.LastCommand,
		History:     st.History.Messages(),
	}
}
