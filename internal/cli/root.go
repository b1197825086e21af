package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	rootConfigPath    string
	rootCredentials   string
	rootModel         string
	rootBaseURL       string
	rootMaxIterations int
	rootTimeout       string
	rootShell         string
	rootLogLevel      string
	rootJSON          bool
	rootRecord        bool
)

var rootCmd = &cobra.Command{
	Use:   "cmdpilot [task...]",
	Short: "Let a language model drive your shell, one command at a time",
	Long: `cmdpilot sends a task to an OpenAI-compatible chat model, extracts a shell
command from the reply, runs it, and feeds the output back until the model
answers "exit" or the iteration limit is reached.

Commands run with your privileges and are not sandboxed.

The task is taken from the arguments, or prompted for when none are given.
Quote a task whose first word is also a subcommand, e.g. cmdpilot "init a git repo".

Credentials are read from the first usable two-line file (endpoint, then key)
among --credentials, credentials_file in the config, ~/.cmdpilot/api.txt,
~/.config/cmdpilot/api.txt, /etc/cmdpilot/api.txt and ./api.txt, then from
CMDPILOT_API_KEY / CMDPILOT_BASE_URL, and finally prompted for.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("cmdpilot version {{.Version}}\n")

	flags := rootCmd.Flags()
	flags.StringVarP(&rootConfigPath, "config", "c", "", "config file (default .cmdpilot/config.yaml)")
	flags.StringVar(&rootCredentials, "credentials", "", "two-line credentials file: endpoint, then API key")
	flags.StringVarP(&rootModel, "model", "m", "", "model name")
	flags.StringVar(&rootBaseURL, "base-url", "", "API endpoint")
	flags.IntVarP(&rootMaxIterations, "max-iterations", "n", 0, "maximum number of rounds")
	flags.StringVarP(&rootTimeout, "timeout", "t", "", "per-command timeout, e.g. 90s or 5m")
	flags.StringVar(&rootShell, "shell", "", `shell argv commands are appended to, e.g. "bash -lc"`)
	flags.StringVar(&rootLogLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	flags.BoolVar(&rootJSON, "json", false, "print a JSON run summary on stdout; progress goes to stderr")
	flags.BoolVar(&rootRecord, "record", false, "save the run under .cmdpilot/runs/ (see record_runs)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run
// context, which stops the loop after killing any running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
