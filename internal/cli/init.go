package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thruflo/cmdpilot/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .cmdpilot/ directory",
	Long: `Creates the .cmdpilot/ directory in the current directory.

This command sets up:
  - config.yaml with the model, limits and executor defaults
  - command.env, extra environment for every executed command
  - .gitignore keeping a project-local api.txt and recorded runs out of
    version control`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := filepath.Join(cwd, config.DirName)
	if dirExists(dir) && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	files := []struct {
		name    string
		content string
		perm    os.FileMode
	}{
		{"config.yaml", configYAMLContent, 0o644},
		{"command.env", commandEnvContent, 0o600},
		{".gitignore", gitignoreContent, 0o644},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), f.perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s/ in %s\n", config.DirName, cwd)
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

const configYAMLContent = `# cmdpilot configuration
# Command-line flags override these values.

model:
  name: deepseek-chat
  # Used when the credentials file does not name an endpoint.
  base_url: https://api.deepseek.com
  temperature: 0.7
  max_tokens: 2000
  # Per-request limit; 0 waits indefinitely.
  request_timeout: 0s
  # system_prompt: Reply with exactly one command in a bash code block.

limits:
  # Rounds before the run stops
  max_iterations: 20

  # Messages kept as conversation history
  history_size: 20

  # Characters of command output shown on the console
  display_chars: 1500

  # Characters of command output sent back to the model
  prompt_chars: 3000

executor:
  shell: /bin/sh -c
  timeout: 5m
  # dir: ./workspace
  env_file: .cmdpilot/command.env

# credentials_file: ~/.cmdpilot/api.txt
log_level: warn

# Save each finished run under .cmdpilot/runs/ (see "cmdpilot runs")
record_runs: true
`

const commandEnvContent = `# Extra environment for commands cmdpilot runs (gitignored)
# KEY=value, one per line

PAGER=cat
GIT_PAGER=cat
`

const gitignoreContent = `# Credentials
api.txt
command.env

# Recorded runs
runs/
`
