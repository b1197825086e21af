package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/cmdpilot/internal/agent"
	"github.com/thruflo/cmdpilot/internal/config"
	"github.com/thruflo/cmdpilot/internal/console"
	"github.com/thruflo/cmdpilot/internal/executor"
	"github.com/thruflo/cmdpilot/internal/llm"
	"github.com/thruflo/cmdpilot/internal/logging"
	"github.com/thruflo/cmdpilot/internal/prompt"
	"github.com/thruflo/cmdpilot/internal/state"
)

// newModelClient builds the model client; tests replace it.
var newModelClient = func(opts llm.Options) (llm.Client, error) {
	return llm.NewOpenAIClient(opts)
}

// RunSummary is the --json output.
type RunSummary struct {
	Reason      string `json:"reason"`
	RunID       string `json:"run_id"`
	Iterations  int    `json:"iterations"`
	Executions  int    `json:"executions"`
	LastCommand string `json:"last_command,omitempty"`
	Error       string `json:"error,omitempty"`
}

func runRoot(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.ValidationError{Field: "log_level", Message: err.Error()}
	}
	logging.SetLevel(level)

	progress := cmd.OutOrStdout()
	if rootJSON {
		progress = cmd.ErrOrStderr()
	}
	reporter := console.NewReporter(progress)
	prompter := prompt.New(cmd.InOrStdin(), progress)

	creds, err := resolveCredentials(cfg, reporter, prompter)
	if err != nil {
		return err
	}
	baseURL := creds.BaseURL
	if cmd.Flags().Changed("base-url") || baseURL == "" {
		baseURL = cfg.Model.BaseURL
	}

	client, err := newModelClient(llm.Options{
		BaseURL:        baseURL,
		APIKey:         creds.APIKey,
		Model:          cfg.Model.Name,
		Temperature:    cfg.Model.Temperature,
		MaxTokens:      cfg.Model.MaxTokens,
		SystemPrompt:   cfg.Model.SystemPrompt,
		RequestTimeout: cfg.Model.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	exec, err := newExecutor(cwd, cfg.Executor)
	if err != nil {
		return err
	}

	runID := agent.NewRunID()
	reporter.Banner(console.BannerInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		WorkDir:   cwd,
		RunID:     runID,
		Model:     cfg.Model.Name,
		Endpoint:  llm.NormalizeBaseURL(baseURL),
	})

	task := strings.Join(args, " ")
	if strings.TrimSpace(task) == "" {
		task, err = prompter.Ask("Enter a task:")
		if err != nil {
			return err
		}
	}

	loop := agent.NewLoop(agent.LoopOptions{
		Client:   client,
		Executor: exec,
		Reporter: reporter,
		Logger:   logging.Default(),
		Limits: agent.Limits{
			MaxIterations: cfg.Limits.MaxIterations,
			HistorySize:   cfg.Limits.HistorySize,
			DisplayChars:  cfg.Limits.DisplayChars,
			PromptChars:   cfg.Limits.PromptChars,
		},
		RunID: runID,
	})
	limits := loop.Limits()
	logging.Debug("run configured",
		"run_id", runID,
		"max_iterations", limits.MaxIterations,
		"history_size", limits.HistorySize,
		"timeout", exec.Timeout(),
		"interactive", prompter.Interactive(),
	)

	startedAt := time.Now()
	result := loop.Run(cmd.Context(), task)

	if cfg.RecordRuns {
		run := &state.Run{
			ID:          result.RunID,
			Task:        strings.TrimSpace(task),
			Model:       cfg.Model.Name,
			Endpoint:    llm.NormalizeBaseURL(baseURL),
			WorkDir:     cwd,
			StartedAt:   startedAt,
			FinishedAt:  time.Now(),
			Reason:      result.Reason.String(),
			Iterations:  result.Iterations,
			Executions:  result.Executions,
			LastCommand: result.LastCommand,
			Error:       summaryError(result.Error),
		}
		if err := state.NewStore(cwd).SaveRun(run); err != nil {
			logging.Warn("failed to record run", "run_id", result.RunID, "error", err)
			reporter.Notice("Warning: run was not recorded: %v", err)
		}
	}

	if rootJSON {
		return writeSummary(cmd.OutOrStdout(), result)
	}
	return nil
}

// loadConfig reads --config when given, else .cmdpilot/config.yaml under cwd.
func loadConfig(cwd string) (*config.Config, error) {
	if rootConfigPath != "" {
		return config.LoadConfigFile(rootConfigPath)
	}
	return config.LoadConfig(cwd)
}

// applyFlags overrides config values with flags the user set, then
// revalidates.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("model") {
		cfg.Model.Name = rootModel
	}
	if flags.Changed("base-url") {
		cfg.Model.BaseURL = rootBaseURL
	}
	if flags.Changed("max-iterations") {
		cfg.Limits.MaxIterations = rootMaxIterations
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(rootTimeout)
		if err != nil {
			return config.ValidationError{Field: "executor.timeout", Message: fmt.Sprintf("invalid duration %q", rootTimeout)}
		}
		cfg.Executor.Timeout = d
	}
	if flags.Changed("shell") {
		cfg.Executor.Shell = rootShell
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = rootLogLevel
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile = rootCredentials
	}
	if flags.Changed("record") {
		cfg.RecordRuns = rootRecord
	}

	return config.ValidateConfig(cfg)
}

// resolveCredentials tries the candidate files, then the environment, and
// finally prompts for a key against the configured endpoint.
func resolveCredentials(cfg *config.Config, reporter *console.Reporter, prompter *prompt.Prompter) (*config.Credentials, error) {
	creds, err := config.FindCredentials(config.CandidateCredentialPaths(cfg.CredentialsFile))
	if err == nil {
		reporter.Notice("Loaded API configuration from %s", creds.Source)
		return creds, nil
	}
	if !errors.Is(err, config.ErrNoCredentials) {
		return nil, err
	}

	if creds := config.CredentialsFromEnv(); creds != nil {
		reporter.Notice("Using API key from %s", creds.Source)
		return creds, nil
	}

	reporter.Notice("Warning: no API configuration file found, enter the API key manually")
	key, err := prompter.AskSecret("API key:")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("an API key is required")
	}
	return &config.Credentials{BaseURL: cfg.Model.BaseURL, APIKey: key, Source: "prompt"}, nil
}

// newExecutor builds the shell executor, resolving a relative working
// directory and env file against cwd.
func newExecutor(cwd string, cfg config.Executor) (*executor.ShellExecutor, error) {
	var env []string
	if cfg.EnvFile != "" {
		vars, err := config.LoadEnvFile(resolvePath(cwd, cfg.EnvFile))
		if err != nil {
			return nil, err
		}
		env = config.EnvList(vars)
	}

	dir := cfg.Dir
	if dir != "" {
		dir = resolvePath(cwd, dir)
	}

	exec, err := executor.New(executor.Options{
		Shell:   cfg.Shell,
		Timeout: cfg.Timeout,
		Dir:     dir,
		Env:     env,
	})
	if err != nil {
		return nil, config.ValidationError{Field: "executor.shell", Message: err.Error()}
	}
	return exec, nil
}

func resolvePath(base, path string) string {
	path = config.ExpandHome(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func writeSummary(w io.Writer, result agent.Result) error {
	summary := RunSummary{
		Reason:      result.Reason.String(),
		RunID:       result.RunID,
		Iterations:  result.Iterations,
		Executions:  result.Executions,
		LastCommand: result.LastCommand,
		Error:       summaryError(result.Error),
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// summaryError renders a run error for output. Cancellation is already
// conveyed by the exit reason.
func summaryError(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	return err.Error()
}
