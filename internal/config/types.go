package config

import "time"

// Model configures the chat completion endpoint and request parameters.
type Model struct {
	Name           string        `yaml:"name"`
	BaseURL        string        `yaml:"base_url"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SystemPrompt   string        `yaml:"system_prompt,omitempty"`
}

// Limits bounds a single run.
type Limits struct {
	MaxIterations int `yaml:"max_iterations"`
	HistorySize   int `yaml:"history_size"`
	DisplayChars  int `yaml:"display_chars"`
	PromptChars   int `yaml:"prompt_chars"`
}

// Executor configures how commands are run.
type Executor struct {
	Shell   string        `yaml:"shell"`
	Timeout time.Duration `yaml:"timeout"`
	Dir     string        `yaml:"dir"`
	// EnvFile holds KEY=VALUE lines added to every command's environment.
	EnvFile string `yaml:"env_file,omitempty"`
}

// Config represents the .cmdpilot/config.yaml file.
type Config struct {
	Model           Model    `yaml:"model"`
	Limits          Limits   `yaml:"limits"`
	Executor        Executor `yaml:"executor"`
	CredentialsFile string   `yaml:"credentials_file"`
	LogLevel        string   `yaml:"log_level"`
	// RecordRuns saves each finished run under .cmdpilot/runs/.
	RecordRuns bool `yaml:"record_runs"`
}
