package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repldoc/internal/config"
	"repldoc/internal/expression"
	"repldoc/internal/extract"
	"repldoc/internal/logger"
	"repldoc/internal/orchestrator"
	"repldoc/internal/output"
	"repldoc/internal/repl"
)

// runExamples extracts the examples matching the sources pattern and
// verifies them.
func (app *App) runExamples(cmd *cobra.Command, args []string) error {
	workDir := app.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		workDir = wd
	}

	if err := config.ReadFiles(app.Viper, app.ConfigFile, workDir); err != nil {
		return err
	}
	if len(args) == 2 {
		app.Viper.Set(config.KeyInterpreter, args[0])
		app.Viper.Set(config.KeySources, args[1])
	}
	cfg, err := config.Resolve(app.Viper)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	runID := logger.WithRun()

	printer := app.reportPrinter()
	summary := output.NewSummary(runID, cfg.Interpreter, cfg.Sources)

	err = app.verify(cmd, cfg, printer)
	if err != nil && cfg.Diff {
		err = output.NewDiffer(printer).Decorate(err)
	}

	if cfg.Summary != "" {
		var failed string
		var exampleErr *orchestrator.ExampleError
		if errors.As(err, &exampleErr) {
			failed = exampleErr.ID.String()
		}
		summary.Finish(printer.Passed(), failed, err)
		if writeErr := summary.WriteFile(cfg.Summary); writeErr != nil {
			logger.Error("could not write summary", "path", cfg.Summary, "error", writeErr)
		}
	}

	return err
}

func (app *App) verify(cmd *cobra.Command, cfg *config.Config, printer *output.Printer) error {
	examples, err := extract.Obtain(cfg.Sources, extract.Options{
		ReplTag:       cfg.Repl.Tag,
		ExpressionTag: cfg.Expression.Tag,
		SkipMarker:    cfg.SkipMarker,
		Prompt:        cfg.Repl.Prompt,
	})
	if err != nil {
		return err
	}
	logger.Info("verifying examples", "count", len(examples), "interpreter", cfg.Interpreter)

	replDriver := repl.NewDriver(repl.Options{
		Interpreter: cfg.Interpreter,
		Args:        cfg.Repl.Args,
	})
	evaluator := expression.NewEvaluator(cfg.Expression.Command)

	return orchestrator.NewApp(replDriver, evaluator, printer, cfg.Repl.Resync).Run(cmd.Context(), examples)
}
