// Package cli provides command-line interface setup for repldoc.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"repldoc/internal/config"
	"repldoc/internal/output"
)

// App represents the repldoc CLI application
type App struct {
	Viper      *viper.Viper
	ConfigFile string
	// WorkDir holds the optional repldoc.yaml and .env files; empty means
	// the current directory.
	WorkDir string
	// Stderr receives the report stream and the final error.
	Stderr io.Writer

	printer *output.Printer
}

// NewApp creates a new repldoc CLI application
func NewApp() *App {
	return &App{
		Viper:  config.New(),
		Stderr: os.Stderr,
	}
}

// Execute runs the command line args and returns the process exit code.
// A failure is written to Stderr as the last line of output.
func (app *App) Execute(ctx context.Context, args []string) int {
	rootCmd := app.CreateRootCommand()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		app.reportPrinter().Error(err)
		return 1
	}
	return 0
}

// reportPrinter returns the printer shared by the report stream and the
// final error.
func (app *App) reportPrinter() *output.Printer {
	if app.printer == nil {
		app.printer = output.NewStderrPrinter(output.WithWriter(app.Stderr))
	}
	return app.printer
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repldoc [flags] <interpreter> <sources-glob>",
		Short: "Verify Nix REPL transcripts and expressions in markdown",
		Long: `repldoc replays every nix-repl code block found in the matching markdown
files against an interactive REPL and evaluates every nix code block, failing
at the first result that differs from the documentation.

Both positional arguments may instead come from repldoc.yaml, a .env file or
REPLDOC_INTERPRETER and REPLDOC_SOURCES.`,
		Args:          positionalArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          app.runExamples,
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "Config file (default: repldoc.yaml in the working directory)")
	rootCmd.PersistentFlags().String("log-level", "", "Set log level (debug|info|warn|error) [default: warn]")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to file instead of stderr")

	flags := rootCmd.Flags()
	flags.String("repl-tag", "", "Info string tag of REPL transcript blocks [default: nix-repl]")
	flags.String("expression-tag", "", "Info string tag of expression blocks [default: nix]")
	flags.String("skip-marker", "", "Info string word that excludes a block [default: skip]")
	flags.String("prompt", "", "REPL prompt that starts each query line [default: \"nix-repl> \"]")
	flags.String("resync", "", "Behaviour on unexpected REPL output (resync|fail) [default: resync]")
	flags.Bool("diff", false, "Append a character diff to result mismatches")
	flags.String("summary", "", "Write a YAML run summary to this file")

	bindings := []struct {
		flags *pflag.FlagSet
		name  string
		key   string
	}{
		{rootCmd.PersistentFlags(), "log-level", config.KeyLogLevel},
		{rootCmd.PersistentFlags(), "log-file", config.KeyLogFile},
		{flags, "repl-tag", config.KeyReplTag},
		{flags, "expression-tag", config.KeyExprTag},
		{flags, "skip-marker", config.KeySkipMarker},
		{flags, "prompt", config.KeyReplPrompt},
		{flags, "resync", config.KeyReplResync},
		{flags, "diff", config.KeyDiff},
		{flags, "summary", config.KeySummary},
	}
	for _, b := range bindings {
		if err := app.Viper.BindPFlag(b.key, b.flags.Lookup(b.name)); err != nil {
			panic(fmt.Sprintf("binding --%s: %v", b.name, err))
		}
	}

	app.addVersionCommand(rootCmd)

	return rootCmd
}

func positionalArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("expected <interpreter> <sources-glob>, got %d argument(s)", len(args))
	}
	return nil
}
