// Package executor runs model-proposed commands through the host shell.
//
// Every outcome is reported as a Result: a non-zero exit, a timeout and a
// failed launch all come back as values, never as errors, so the caller
// can feed them to the model unchanged.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
)

// Defaults for the shell runner.
const (
	DefaultShell   = "/bin/sh -c"
	DefaultTimeout = 300 * time.Second

	// FailedExitCode is reported when the command could not complete.
	FailedExitCode = -1

	stderrLabel = "\nstderr:\n"
	waitDelay   = 2 * time.Second
)

// Result is the outcome of one command execution.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Executor runs a single text command.
type Executor interface {
	Execute(ctx context.Context, command string) Result
}

// TimeoutMessage is the output reported for a command that exceeded timeout.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("command timed out after %s", timeout)
}

// FailureMessage is the output reported when a command could not be run.
func FailureMessage(err error) string {
	return fmt.Sprintf("command execution failed: %v", err)
}

// Options configures a ShellExecutor.
type Options struct {
	// Shell is the argv prefix the command is appended to, e.g. "bash -lc".
	Shell   string
	Timeout time.Duration
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is appended to the process environment.
	Env []string
}

// ShellExecutor executes commands with a shell on the local host.
type ShellExecutor struct {
	shell   []string
	timeout time.Duration
	dir     string
	env     []string
}

// New creates a ShellExecutor. The shell string is split into argv with
// shell quoting rules.
func New(opts Options) (*ShellExecutor, error) {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}
	argv, err := shellwords.Parse(shell)
	if err != nil {
		return nil, fmt.Errorf("invalid shell %q: %w", shell, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("invalid shell %q: empty", shell)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &ShellExecutor{
		shell:   argv,
		timeout: timeout,
		dir:     opts.Dir,
		env:     opts.Env,
	}, nil
}

// Timeout returns the per-command wall-clock limit.
func (e *ShellExecutor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs command and captures stdout and stderr separately. Stderr,
// when present, is appended to the output under a label.
func (e *ShellExecutor) Execute(ctx context.Context, command string) Result {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, e.shell[1:]...), command)
	cmd := exec.CommandContext(runCtx, e.shell[0], args...)
	cmd.Dir = e.dir
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	configureProcess(cmd)
	cmd.Cancel = func() error {
		terminateProcess(cmd)
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{
			Output:   TimeoutMessage(e.timeout),
			ExitCode: FailedExitCode,
			TimedOut: true,
			Duration: duration,
		}
	}

	if err != nil {
		// The caller gave up (e.g. interrupt); whatever ran is incomplete.
		if ctx.Err() != nil {
			return failed(ctx.Err(), duration)
		}
		// A background child kept the pipes open after the shell exited.
		waited := errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil
		var exitErr *exec.ExitError
		if !waited && !errors.As(err, &exitErr) {
			return failed(err, duration)
		}
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += stderrLabel + stderr.String()
	}

	return Result{
		Output:   output,
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: duration,
	}
}

func failed(err error, duration time.Duration) Result {
	return Result{
		Output:   FailureMessage(err),
		ExitCode: FailedExitCode,
		Duration: duration,
	}
}

// MockExecutor is a test double for Executor.
type MockExecutor struct {
	// ExecuteFunc is called when Execute is invoked.
	// If nil, Execute returns an empty successful result.
	ExecuteFunc func(ctx context.Context, command string) Result
}

// Execute calls the mock function if set.
func (m *MockExecutor) Execute(ctx context.Context, command string) Result {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, command)
	}
	return Result{}
}
