// Package orchestrator decides the fate of every example in a run. State is a
// pure reducer from input events to output commands; App threads it through
// an event loop connected to the session driver, the expression evaluator
// and the reporter.
package orchestrator

import (
	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/repl"
)

// Event is an input to State.Event.
type Event interface {
	isEvent()
}

// ExampleReady hands one extracted example to the orchestrator.
type ExampleReady struct {
	Example example.Example
}

// ReplEvent wraps an event from the session driver.
type ReplEvent struct {
	Event repl.Event
}

// ExpressionEvent wraps an event from the expression evaluator.
type ExpressionEvent struct {
	Event expression.Event
}

// ReportFlushed acknowledges that one Report line has been written.
type ReportFlushed struct{}

// CollaboratorFailed reports that the session driver or the expression
// evaluator stopped with an error.
type CollaboratorFailed struct {
	Name string
	Err  error
}

func (ExampleReady) isEvent()       {}
func (ReplEvent) isEvent()          {}
func (ExpressionEvent) isEvent()    {}
func (ReportFlushed) isEvent()      {}
func (CollaboratorFailed) isEvent() {}

// Output is produced by State.Event.
type Output interface {
	isOutput()
}

// ReplCommand is to be sent to the session driver.
type ReplCommand struct {
	Command repl.Command
}

// ExpressionCommand is to be sent to the expression evaluator.
type ExpressionCommand struct {
	Command expression.Evaluate
}

// Report is a line for the reporter. Each Report must be answered with a
// ReportFlushed once written.
type Report struct {
	Line string
}

// Done ends the run. A nil Err means every example passed.
type Done struct {
	Err error
}

func (ReplCommand) isOutput()       {}
func (ExpressionCommand) isOutput() {}
func (Report) isOutput()            {}
func (Done) isOutput()              {}
