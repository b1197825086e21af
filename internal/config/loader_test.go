package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return tmpDir
}

func TestLoadConfig_Default(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), *cfg)
	assert.Equal(t, "deepseek-chat", cfg.Model.Name)
	assert.Equal(t, "https://api.deepseek.com", cfg.Model.BaseURL)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, 2000, cfg.Model.MaxTokens)
	assert.Equal(t, 20, cfg.Limits.MaxIterations)
	assert.Equal(t, 20, cfg.Limits.HistorySize)
	assert.Equal(t, 1500, cfg.Limits.DisplayChars)
	assert.Equal(t, 3000, cfg.Limits.PromptChars)
	assert.Equal(t, "/bin/sh -c", cfg.Executor.Shell)
	assert.Equal(t, 5*time.Minute, cfg.Executor.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	tmpDir := writeConfig(t, `model:
  name: gpt-4o-mini
  base_url: http://localhost:8080/v1
  temperature: 0.2
  max_tokens: 512
  request_timeout: 30s
limits:
  max_iterations: 5
  history_size: 8
  display_chars: 200
  prompt_chars: 400
executor:
  shell: bash -lc
  timeout: 90s
  dir: /tmp
credentials_file: /secrets/api.txt
log_level: debug
`)

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, Model{
		Name:           "gpt-4o-mini",
		BaseURL:        "http://localhost:8080/v1",
		Temperature:    0.2,
		MaxTokens:      512,
		RequestTimeout: 30 * time.Second,
	}, cfg.Model)
	assert.Equal(t, Limits{MaxIterations: 5, HistorySize: 8, DisplayChars: 200, PromptChars: 400}, cfg.Limits)
	assert.Equal(t, "bash -lc", cfg.Executor.Shell)
	assert.Equal(t, 90*time.Second, cfg.Executor.Timeout)
	assert.Equal(t, "/tmp", cfg.Executor.Dir)
	assert.Equal(t, "/secrets/api.txt", cfg.CredentialsFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	t.Parallel()

	// Only set max_iterations, rest should keep defaults
	tmpDir := writeConfig(t, `limits:
  max_iterations: 3
`)

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Limits.MaxIterations)
	assert.Equal(t, DefaultHistorySize, cfg.Limits.HistorySize)
	assert.Equal(t, DefaultPromptChars, cfg.Limits.PromptChars)
	assert.Equal(t, DefaultModel(), cfg.Model)
	assert.Equal(t, DefaultExecutor(), cfg.Executor)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := writeConfig(t, `limits: [`)

	_, err := LoadConfig(tmpDir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model:\n  name: local-llama\n"), 0o644))

		cfg, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, "local-llama", cfg.Model.Name)
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"empty model name", "model:\n  name: \"\"\n", "model.name"},
		{"negative temperature", "model:\n  temperature: -0.1\n", "model.temperature"},
		{"temperature too high", "model:\n  temperature: 2.5\n", "model.temperature"},
		{"zero max_tokens", "model:\n  max_tokens: 0\n", "model.max_tokens"},
		{"negative request_timeout", "model:\n  request_timeout: -1s\n", "model.request_timeout"},
		{"zero max_iterations", "limits:\n  max_iterations: 0\n", "limits.max_iterations"},
		{"negative history_size", "limits:\n  history_size: -2\n", "limits.history_size"},
		{"zero display_chars", "limits:\n  display_chars: 0\n", "limits.display_chars"},
		{"zero prompt_chars", "limits:\n  prompt_chars: 0\n", "limits.prompt_chars"},
		{"blank shell", "executor:\n  shell: \"  \"\n", "executor.shell"},
		{"zero timeout", "executor:\n  timeout: 0s\n", "executor.timeout"},
		{"unknown log level", "log_level: chatty\n", "log_level"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateConfig_Boundaries(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Model.Temperature = 0
	assert.NoError(t, ValidateConfig(&cfg))

	cfg.Model.Temperature = MaxTemperature
	assert.NoError(t, ValidateConfig(&cfg))

	cfg.Limits.DisplayChars = 1
	cfg.Limits.PromptChars = 1
	cfg.Model.MaxTokens = 1
	assert.NoError(t, ValidateConfig(&cfg))
}

func TestLoadEnvFile_Valid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "command.env")
	envContent := `# shared by every command
PAGER=cat
export GIT_PAGER=cat

GREETING="hello world"
SINGLE='quoted'
`
	require.NoError(t, os.WriteFile(path, []byte(envContent), 0o644))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"PAGER":     "cat",
		"GIT_PAGER": "cat",
		"GREETING":  "hello world",
		"SINGLE":    "quoted",
	}, env)
}

func TestLoadEnvFile_NotFound(t *testing.T) {
	t.Parallel()

	env, err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestLoadEnvFile_OnlyComments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "command.env")
	require.NoError(t, os.WriteFile(path, []byte("# one\n\n# two\n"), 0o644))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing equals", "INVALID_LINE", "missing '='"},
		{"empty key", "=value", "empty key"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "command.env")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadEnvFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadEnvFile_ValueWithEquals(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "command.env")
	require.NoError(t, os.WriteFile(path, []byte("KEY=value=with=equals\nEMPTY="), 0o644))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "value=with=equals", env["KEY"])
	assert.Equal(t, "", env["EMPTY"])
}

func TestEnvList(t *testing.T) {
	t.Parallel()

	got := EnvList(map[string]string{"B": "2", "A": "1", "C": ""})
	assert.Equal(t, []string{"A=1", "B=2", "C="}, got)
	assert.Empty(t, EnvList(nil))
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	ve := ValidationError{Field: "model.name", Message: "required field is empty"}
	assert.Equal(t, "validation error: model.name: required field is empty", ve.Error())
}
