// Package expression evaluates non-interactive examples: each expression is
// handed to a one-shot evaluator process whose exit status decides the
// outcome.
package expression

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"repldoc/internal/example"
	"repldoc/internal/logger"
)

// DefaultCommand evaluates a Nix expression given as the final argument.
var DefaultCommand = []string{"nix-instantiate", "--expr", "--eval"}

// CommandFor returns DefaultCommand, with the evaluator resolved next to
// interpreter when interpreter names a path rather than a bare program.
func CommandFor(interpreter string) []string {
	cmd := append([]string(nil), DefaultCommand...)
	if dir := filepath.Dir(interpreter); interpreter != "" && dir != "." {
		cmd[0] = filepath.Join(dir, cmd[0])
	}
	return cmd
}

// Evaluate asks the Evaluator to run one example.
type Evaluate struct {
	Example example.ExpressionExample
}

// Event is reported by the Evaluator.
type Event interface {
	EventID() example.ID
}

// Spawned is reported once the evaluator process has started, or failed to.
type Spawned struct {
	ID  example.ID
	Err error
}

// Output is reported when an evaluator process exits. Err is set only when
// the process could not be waited for; a non-zero exit is not an Err.
type Output struct {
	ID       example.ID
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

func (e Spawned) EventID() example.ID { return e.ID }
func (e Output) EventID() example.ID  { return e.ID }

// Evaluator starts one process per Evaluate command and reports its output.
type Evaluator struct {
	command []string
	log     *log.Logger
	wg      sync.WaitGroup
}

// NewEvaluator returns an Evaluator running command followed by the
// expression. An empty command means DefaultCommand.
func NewEvaluator(command []string) *Evaluator {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Evaluator{
		command: command,
		log:     logger.NewStyledLogger("expression"),
	}
}

// Run handles commands until the channel is closed or ctx is done.
// Processes still running when Run returns are killed and their output is
// not reported.
func (e *Evaluator) Run(ctx context.Context, commands <-chan Evaluate, events chan<- Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		e.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if err := e.start(ctx, cmd.Example, events); err != nil {
				return err
			}
		}
	}
}

func (e *Evaluator) start(ctx context.Context, ex example.ExpressionExample, events chan<- Event) error {
	args := append(append([]string(nil), e.command[1:]...), ex.Expression)
	cmd := exec.CommandContext(ctx, e.command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return emit(ctx, events, Spawned{ID: ex.ID, Err: fmt.Errorf("failed to start %s: %w", e.command[0], err)})
	}
	e.log.Info("evaluating", "example", ex.ID, "pid", cmd.Process.Pid)

	if err := emit(ctx, events, Spawned{ID: ex.ID}); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		out := Output{ID: ex.ID}
		if err := cmd.Wait(); err != nil {
			var ee *exec.ExitError
			if errors.As(err, &ee) {
				out.ExitCode = ee.ExitCode()
			} else {
				out.Err = fmt.Errorf("waiting for %s: %w", e.command[0], err)
			}
		}
		out.Stdout = stdout.Bytes()
		out.Stderr = stderr.Bytes()

		e.log.Debug("evaluated", "example", ex.ID, "exit", out.ExitCode)
		_ = emit(ctx, events, out)
	}()
	return nil
}

func emit(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
