package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultModelName      = "deepseek-chat"
	DefaultBaseURL        = "https://api.deepseek.com"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2000
	DefaultMaxIterations  = 20
	DefaultHistorySize    = 20
	DefaultDisplayChars   = 1500
	DefaultPromptChars    = 3000
	DefaultShell          = "/bin/sh -c"
	DefaultCommandTimeout = 5 * time.Minute
	DefaultLogLevel       = "warn"

	// MaxTemperature is the upper bound accepted for model.temperature.
	MaxTemperature = 2.0
)

// DirName is the per-project configuration directory.
const DirName = ".cmdpilot"

// DefaultModel returns the model section defaults.
func DefaultModel() Model {
	return Model{
		Name:        DefaultModelName,
		BaseURL:     DefaultBaseURL,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// DefaultLimits returns limits with the standard values.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations: DefaultMaxIterations,
		HistorySize:   DefaultHistorySize,
		DisplayChars:  DefaultDisplayChars,
		PromptChars:   DefaultPromptChars,
	}
}

// DefaultExecutor returns the executor section defaults.
func DefaultExecutor() Executor {
	return Executor{
		Shell:   DefaultShell,
		Timeout: DefaultCommandTimeout,
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Model:    DefaultModel(),
		Limits:   DefaultLimits(),
		Executor: DefaultExecutor(),
		LogLevel: DefaultLogLevel,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// DefaultConfigPath returns .cmdpilot/config.yaml under basePath.
func DefaultConfigPath(basePath string) string {
	return filepath.Join(basePath, DirName, "config.yaml")
}

// LoadConfig reads .cmdpilot/config.yaml from the given base path.
// If the file doesn't exist, returns default config.
func LoadConfig(basePath string) (*Config, error) {
	return loadConfigFile(DefaultConfigPath(basePath), false)
}

// LoadConfigFile reads the config at an explicit path, which must exist.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfigFile(path, true)
}

func loadConfigFile(path string, mustExist bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding over the defaults keeps any field the file leaves out.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Model.Name) == "" {
		return ValidationError{Field: "model.name", Message: "required field is empty"}
	}
	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > MaxTemperature {
		return ValidationError{Field: "model.temperature", Message: fmt.Sprintf("must be between 0 and %g", MaxTemperature)}
	}
	if cfg.Model.MaxTokens < 1 {
		return ValidationError{Field: "model.max_tokens", Message: "must be at least 1"}
	}
	if cfg.Model.RequestTimeout < 0 {
		return ValidationError{Field: "model.request_timeout", Message: "must not be negative"}
	}

	if cfg.Limits.MaxIterations <= 0 {
		return ValidationError{Field: "limits.max_iterations", Message: "must be positive"}
	}
	if cfg.Limits.HistorySize <= 0 {
		return ValidationError{Field: "limits.history_size", Message: "must be positive"}
	}
	if cfg.Limits.DisplayChars < 1 {
		return ValidationError{Field: "limits.display_chars", Message: "must be at least 1"}
	}
	if cfg.Limits.PromptChars < 1 {
		return ValidationError{Field: "limits.prompt_chars", Message: "must be at least 1"}
	}

	if strings.TrimSpace(cfg.Executor.Shell) == "" {
		return ValidationError{Field: "executor.shell", Message: "required field is empty"}
	}
	if cfg.Executor.Timeout <= 0 {
		return ValidationError{Field: "executor.timeout", Message: "must be positive"}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return ValidationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}

	return nil
}

// LoadEnvFile parses a KEY=VALUE file into a map. Lines starting with #
// are comments, empty lines are ignored, and matching surrounding quotes
// are stripped from values. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid env file line %d: missing '='", lineNum)
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = unquote(strings.TrimSpace(value))

		if key == "" {
			return nil, fmt.Errorf("invalid env file line %d: empty key", lineNum)
		}
		env[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return env, nil
}

// EnvList flattens an env map into sorted KEY=VALUE entries.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
