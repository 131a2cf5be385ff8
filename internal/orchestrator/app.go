package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/logger"
	"repldoc/internal/protocol"
	"repldoc/internal/repl"
)

// ReplDriver runs interactive sessions. *repl.Driver implements it.
type ReplDriver interface {
	Run(ctx context.Context, commands <-chan repl.Command, events chan<- repl.Event) error
}

// ExpressionDriver evaluates expressions. *expression.Evaluator implements it.
type ExpressionDriver interface {
	Run(ctx context.Context, commands <-chan expression.Evaluate, events chan<- expression.Event) error
}

// Reporter writes report lines and acknowledges each one on flushed once it
// has been written.
type Reporter interface {
	Run(ctx context.Context, lines <-chan string, flushed chan<- struct{}) error
}

// App connects the reducer to its collaborators.
type App struct {
	repl        ReplDriver
	expressions ExpressionDriver
	reporter    Reporter
	policy      protocol.ResyncPolicy
	log         *log.Logger
}

// NewApp creates an App.
func NewApp(replDriver ReplDriver, expressions ExpressionDriver, reporter Reporter, policy protocol.ResyncPolicy) *App {
	return &App{
		repl:        replDriver,
		expressions: expressions,
		reporter:    reporter,
		policy:      policy,
		log:         logger.NewStyledLogger("app"),
	}
}

// queue is a FIFO of pending sends. out returns ch while the queue is
// non-empty and nil otherwise, so that a select case on it is only ready
// when there is something to send.
type queue[T any] struct {
	items []T
}

func (q *queue[T]) push(v T) { q.items = append(q.items, v) }

func (q *queue[T]) pop() { q.items = q.items[1:] }

func (q *queue[T]) out(ch chan T) (chan T, T) {
	var zero T
	if len(q.items) == 0 {
		return nil, zero
	}
	return ch, q.items[0]
}

// Run verifies examples and returns nil iff every one of them passed.
// Every collaborator is stopped, and every session released, before Run
// returns.
func (a *App) Run(ctx context.Context, examples []example.Example) error {
	if len(examples) == 0 {
		return example.ErrNoExamples
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	replCommands := make(chan repl.Command)
	replEvents := make(chan repl.Event, 256)
	exprCommands := make(chan expression.Evaluate)
	exprEvents := make(chan expression.Event, 16)
	lines := make(chan string)
	flushed := make(chan struct{}, 16)
	failures := make(chan CollaboratorFailed, 2)
	reporterFailed := make(chan error, 1)

	spawn := func(run func() error, failed func(error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(); err != nil && !errors.Is(err, context.Canceled) {
				failed(err)
			}
		}()
	}
	driverFailed := func(name string) func(error) {
		return func(err error) { failures <- CollaboratorFailed{Name: name, Err: err} }
	}
	spawn(func() error { return a.repl.Run(ctx, replCommands, replEvents) }, driverFailed("repl driver"))
	spawn(func() error { return a.expressions.Run(ctx, exprCommands, exprEvents) }, driverFailed("expression evaluator"))
	// Pending reports can no longer be flushed once the reporter is gone.
	spawn(func() error { return a.reporter.Run(ctx, lines, flushed) }, func(err error) {
		reporterFailed <- fmt.Errorf("reporter: %w", err)
	})

	var (
		replQueue queue[repl.Command]
		exprQueue queue[expression.Evaluate]
		lineQueue queue[string]
		state     = NewState(a.policy)
	)

	// apply routes reducer outputs to the queues and reports whether the
	// run is over.
	apply := func(outputs []Output) (bool, error) {
		for _, o := range outputs {
			switch o := o.(type) {
			case ReplCommand:
				replQueue.push(o.Command)
			case ExpressionCommand:
				exprQueue.push(o.Command)
			case Report:
				lineQueue.push(o.Line)
			case Done:
				return true, o.Err
			}
		}
		return false, nil
	}

	for _, ex := range examples {
		if done, err := apply(state.Event(ExampleReady{Example: ex})); done {
			return err
		}
	}
	a.log.Debug("examples registered", "count", len(examples))

	for {
		replOut, nextRepl := replQueue.out(replCommands)
		exprOut, nextExpr := exprQueue.out(exprCommands)
		lineOut, nextLine := lineQueue.out(lines)

		var outputs []Output
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-reporterFailed:
			return err
		case failure := <-failures:
			a.log.Debug("collaborator failed", "name", failure.Name, "error", failure.Err)
			outputs = state.Event(failure)
		case replOut <- nextRepl:
			replQueue.pop()
			continue
		case exprOut <- nextExpr:
			exprQueue.pop()
			continue
		case lineOut <- nextLine:
			lineQueue.pop()
			continue
		case ev := <-replEvents:
			outputs = state.Event(ReplEvent{Event: ev})
		case ev := <-exprEvents:
			outputs = state.Event(ExpressionEvent{Event: ev})
		case <-flushed:
			outputs = state.Event(ReportFlushed{})
		}

		if done, err := apply(outputs); done {
			return err
		}
	}
}
