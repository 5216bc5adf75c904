package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abitwise/express-api-test/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	jsonOutput bool
	logLevel   string
	logFormat  string

	logger *slog.Logger
}

// setup builds the logger from the persistent flags. Logs go to stderr so
// they never mix with command output.
func (g *globalOptions) setup(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.logFormat)
	if err != nil {
		return err
	}
	g.logger = logging.Component(logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	}), "cli")
	return nil
}

// NewRootCmd builds the handlerprobe command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: logging.Nop()}

	rootCmd := &cobra.Command{
		Use:   "handlerprobe",
		Short: "handlerprobe checks request handler scenarios",
		Long: `handlerprobe works with scenario files: declarative descriptions of a fake
request and the response calls a handler is expected to make.

Scenario files are YAML or JSON, hold one scenario or a list, and may use
${VAR} and ${VAR:-default} environment expansion.`,
		SilenceUsage:      true,
		SilenceErrors:     true, // We handle errors in Execute()
		PersistentPreRunE: opts.setup,
	}

	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newInspectCmd(opts),
		newSchemaCmd(),
		newVersionCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command with os.Args and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
