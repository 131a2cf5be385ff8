package example

import "errors"

// ErrNoExamples is returned when a run has nothing to verify.
var ErrNoExamples = errors.New("could not find any examples")

// Example is either a ReplExample or an ExpressionExample.
type Example interface {
	// ExampleID returns the identity of the example.
	ExampleID() ID
	isExample()
}

// ReplEntry is one exchange with the interpreter: a query and the text the
// interpreter is documented to print in response. ExpectedResult may be
// empty, e.g. for an assignment.
type ReplEntry struct {
	Query          Query
	ExpectedResult string
}

// ReplExample is an interactive transcript replayed against a live session.
type ReplExample struct {
	ID      ID
	Entries []ReplEntry
}

// ExpressionExample is evaluated once, non-interactively.
type ExpressionExample struct {
	ID         ID
	Expression string
}

// ExampleID implements Example.
func (e ReplExample) ExampleID() ID { return e.ID }

// ExampleID implements Example.
func (e ExpressionExample) ExampleID() ID { return e.ID }

func (ReplExample) isExample()       {}
func (ExpressionExample) isExample() {}
