package cli

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/cmdpilot/internal/agent"
	"github.com/thruflo/cmdpilot/internal/config"
	"github.com/thruflo/cmdpilot/internal/llm"
	"github.com/thruflo/cmdpilot/internal/logging"
	"github.com/thruflo/cmdpilot/internal/testutil"
)

// resetFlags restores every flag to its default so tests sharing rootCmd
// don't see each other's values.
func resetFlags() {
	for _, c := range []*cobra.Command{rootCmd, initCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}

type cmdOutput struct {
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) (cmdOutput, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	ctx, cancel := testutil.RunContext(t)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	return cmdOutput{stdout: stdout.String(), stderr: stderr.String()}, err
}

// stubModelClient makes runRoot use client and records the options it
// was built with.
func stubModelClient(t *testing.T, client llm.Client) *llm.Options {
	t.Helper()
	var got llm.Options
	prev := newModelClient
	newModelClient = func(opts llm.Options) (llm.Client, error) {
		got = opts
		return client, nil
	}
	t.Cleanup(func() { newModelClient = prev })
	return &got
}

// setupWorkdir isolates HOME and the credential variables and changes into
// a fresh directory.
func setupWorkdir(t *testing.T) string {
	t.Helper()
	testutil.IsolateHome(t)
	dir := t.TempDir()
	testutil.Chdir(t, dir)
	return dir
}

func TestRun_EndToEnd(t *testing.T) {
	dir := setupWorkdir(t)
	testutil.WriteCredentialsFile(t, dir, "http://creds.example/v1/", "sk-test")

	client := testutil.NewScriptedClient(testutil.FencedReply("echo hello-from-shell"), testutil.ReplyExit)
	opts := stubModelClient(t, client)

	out, err := execute(t, "", "say", "hello")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", opts.APIKey)
	assert.Equal(t, "http://creds.example/v1/", opts.BaseURL)
	assert.Equal(t, config.DefaultModelName, opts.Model)
	assert.Equal(t, config.DefaultTemperature, opts.Temperature)
	assert.Equal(t, config.DefaultMaxTokens, opts.MaxTokens)

	require.Equal(t, 2, client.CallCount())
	assert.Equal(t, "say hello", client.LastPrompt(0))
	assert.Contains(t, client.LastPrompt(1), "hello-from-shell")

	assert.Contains(t, out.stdout, "Loaded API configuration from api.txt")
	assert.Contains(t, out.stdout, "=== cmdpilot "+Version+" ===")
	assert.Contains(t, out.stdout, "Endpoint: http://creds.example/v1")
	assert.Contains(t, out.stdout, "=== Round 1/20 ===")
	assert.Contains(t, out.stdout, "=== Round 2/20 ===")
	assert.Contains(t, out.stdout, agent.MsgExitCommand)
	assert.Empty(t, out.stderr)
}

func TestRun_JSONSummary(t *testing.T) {
	dir := setupWorkdir(t)
	testutil.WriteCredentialsFile(t, dir, "http://creds.example", "sk-test")

	client := testutil.NewScriptedClient(testutil.FencedReply("echo one"), testutil.ReplyExit)
	stubModelClient(t, client)

	out, err := execute(t, "", "--json", "count to one")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &summary))
	assert.Equal(t, "exit command", summary.Reason)
	assert.Equal(t, 2, summary.Iterations)
	assert.Equal(t, 1, summary.Executions)
	assert.Equal(t, "exit", summary.LastCommand)
	assert.NotEmpty(t, summary.RunID)
	assert.Empty(t, summary.Error)

	assert.Contains(t, out.stderr, "=== Round 1/20 ===")
	assert.Contains(t, out.stderr, "Run ID: "+summary.RunID)
}

func TestRun_FlagsOverrideConfigAndCredentials(t *testing.T) {
	dir := setupWorkdir(t)
	testutil.WriteCredentialsFile(t, dir, "http://creds.example", "sk-test")

	client := testutil.NewScriptedClient()
	client.Fallback = testutil.ScriptedReply{Text: testutil.FencedReply("true")}
	opts := stubModelClient(t, client)

	out, err := execute(t, "",
		"--json",
		"--model", "local-llama",
		"--base-url", "http://flag.example",
		"--max-iterations", "2",
		"keep going",
	)
	require.NoError(t, err)

	assert.Equal(t, "local-llama", opts.Model)
	assert.Equal(t, "http://flag.example", opts.BaseURL)
	assert.Equal(t, "sk-test", opts.APIKey)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &summary))
	assert.Equal(t, "max iterations", summary.Reason)
	assert.Equal(t, 2, summary.Iterations)
	assert.Equal(t, 2, summary.Executions)
	assert.Contains(t, out.stderr, agent.MaxIterationsMessage(2))
}

func TestRun_ConfigFileFromWorkdir(t *testing.T) {
	dir := setupWorkdir(t)
	testutil.WriteCredentialsFile(t, dir, "http://creds.example", "sk-test")
	testutil.WriteTestFile(t, dir, ".cmdpilot/config.yaml", []byte(`model:
  name: from-config
limits:
  max_iterations: 1
executor:
  env_file: .cmdpilot/command.env
`))
	testutil.WriteTestFile(t, dir, ".cmdpilot/command.env", []byte("GREETING=from-env-file\n"))

	client := testutil.NewScriptedClient(testutil.FencedReply("echo greeting=$GREETING"))
	opts := stubModelClient(t, client)

	out, err := execute(t, "", "--json", "greet")
	require.NoError(t, err)

	assert.Equal(t, "from-config", opts.Model)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &summary))
	assert.Equal(t, "max iterations", summary.Reason)
	assert.Equal(t, 1, summary.Iterations)
	assert.Contains(t, out.stderr, "greeting=from-env-file")
}

func TestRun_ExplicitConfigAndCredentialsFlags(t *testing.T) {
	dir := setupWorkdir(t)
	secrets := t.TempDir()
	credPath := testutil.WriteCredentialsFile(t, secrets, "http://explicit.example", "sk-explicit")
	cfgPath := testutil.WriteTestFile(t, dir, "custom.yaml", []byte("model:\n  name: custom-model\n"))

	client := testutil.NewScriptedClient(testutil.ReplyExit)
	opts := stubModelClient(t, client)

	out, err := execute(t, "", "--config", cfgPath, "--credentials", credPath, "stop")
	require.NoError(t, err)

	assert.Equal(t, "custom-model", opts.Model)
	assert.Equal(t, "sk-explicit", opts.APIKey)
	assert.Equal(t, "http://explicit.example", opts.BaseURL)
	assert.Contains(t, out.stdout, "Loaded API configuration from "+credPath)
}

func TestRun_CredentialsFileUnderHome(t *testing.T) {
	dir := setupWorkdir(t)
	home := os.Getenv("HOME")
	credPath := testutil.WriteCredentialsFile(t, filepath.Join(home, "keys"), "http://home.example", "sk-home")
	testutil.WriteTestFile(t, dir, ".cmdpilot/config.yaml", []byte("credentials_file: ~/keys/api.txt\n"))

	opts := stubModelClient(t, testutil.NewScriptedClient(testutil.ReplyExit))

	out, err := execute(t, "", "stop")
	require.NoError(t, err)

	assert.Equal(t, "sk-home", opts.APIKey)
	assert.Equal(t, "http://home.example", opts.BaseURL)
	assert.Contains(t, out.stdout, "Loaded API configuration from "+credPath)
}

func TestRun_CredentialsFromEnvironment(t *testing.T) {
	setupWorkdir(t)
	t.Setenv(config.EnvAPIKey, "sk-env")

	client := testutil.NewScriptedClient(testutil.ReplyExit)
	opts := stubModelClient(t, client)

	out, err := execute(t, "", "stop")
	require.NoError(t, err)

	assert.Equal(t, "sk-env", opts.APIKey)
	assert.Equal(t, config.DefaultBaseURL, opts.BaseURL)
	assert.Contains(t, out.stdout, "Using API key from "+config.EnvAPIKey)
}

func TestRun_PromptsForKeyAndTask(t *testing.T) {
	setupWorkdir(t)

	client := testutil.NewScriptedClient(testutil.ReplyExit)
	opts := stubModelClient(t, client)

	out, err := execute(t, "sk-typed\nlist files\n")
	require.NoError(t, err)

	assert.Equal(t, "sk-typed", opts.APIKey)
	assert.Equal(t, config.DefaultBaseURL, opts.BaseURL)
	assert.Contains(t, out.stdout, "no API configuration file found")
	require.Equal(t, 1, client.CallCount())
	assert.Equal(t, "list files", client.LastPrompt(0))
}

func TestRun_EmptyTaskStopsWithoutCallingModel(t *testing.T) {
	setupWorkdir(t)
	t.Setenv(config.EnvAPIKey, "sk-env")

	client := testutil.NewScriptedClient(testutil.ReplyExit)
	stubModelClient(t, client)

	out, err := execute(t, "   \n", "--json")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &summary))
	assert.Equal(t, "empty task", summary.Reason)
	assert.Equal(t, 0, client.CallCount())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		setup   func(t *testing.T, dir string)
		wantErr string
	}{
		{
			name:    "missing key at prompt",
			stdin:   "\n",
			args:    []string{"task"},
			wantErr: "an API key is required",
		},
		{
			name:    "invalid timeout flag",
			args:    []string{"--timeout", "soon", "task"},
			wantErr: "executor.timeout",
		},
		{
			name:    "zero max iterations flag",
			args:    []string{"--max-iterations", "0", "task"},
			wantErr: "limits.max_iterations",
		},
		{
			name:    "unknown log level",
			args:    []string{"--log-level", "chatty", "task"},
			wantErr: "log_level",
		},
		{
			name:    "missing config file",
			args:    []string{"--config", "does-not-exist.yaml", "task"},
			wantErr: "failed to read config file",
		},
		{
			name: "invalid shell",
			args: []string{"--shell", `"unterminated`, "task"},
			setup: func(t *testing.T, dir string) {
				testutil.WriteCredentialsFile(t, dir, "http://creds.example", "sk-test")
			},
			wantErr: "executor.shell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupWorkdir(t)
			if tt.setup != nil {
				tt.setup(t, dir)
			}
			client := testutil.NewScriptedClient(testutil.ReplyExit)
			stubModelClient(t, client)

			_, err := execute(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 0, client.CallCount())
		})
	}
}

func TestRun_DebugLogsEffectiveSettings(t *testing.T) {
	dir := setupWorkdir(t)
	testutil.WriteCredentialsFile(t, dir, "http://creds.example", "sk-test")
	stubModelClient(t, testutil.NewScriptedClient(testutil.ReplyExit))

	var logs bytes.Buffer
	logging.SetOutput(log.New(&logs, "", 0))
	t.Cleanup(func() {
		logging.SetOutput(log.New(os.Stderr, "", log.LstdFlags))
		logging.SetLevel(logging.LevelWarn)
	})

	_, err := execute(t, "", "--log-level", "debug", "--timeout", "45s", "-n", "4", "stop")
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "DEBUG: run configured |")
	assert.Contains(t, out, "max_iterations=4")
	assert.Contains(t, out, "history_size=20")
	assert.Contains(t, out, "timeout=45s")
	assert.Contains(t, out, "interactive=false")
}

func TestRun_Version(t *testing.T) {
	out, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "cmdpilot version "+Version+"\n", out.stdout)
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	base := filepath.Join(string(os.PathSeparator), "work")
	abs := filepath.Join(string(os.PathSeparator), "etc", "env")

	assert.Equal(t, abs, resolvePath(base, abs))
	assert.Equal(t, filepath.Join(base, ".cmdpilot", "command.env"), resolvePath(base, ".cmdpilot/command.env"))
	assert.Equal(t, filepath.Join(home, "command.env"), resolvePath(base, "~/command.env"))
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeSummary(&buf, agent.Result{
		Reason:      agent.ExitReasonMaxIterations,
		RunID:       "run-1",
		Iterations:  20,
		Executions:  19,
		LastCommand: "ls",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "max iterations", got["reason"])
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(20), got["iterations"])
	assert.Equal(t, float64(19), got["executions"])
	assert.Equal(t, "ls", got["last_command"])
	assert.NotContains(t, got, "error")
}
