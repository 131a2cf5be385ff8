package orchestrator

import (
	"fmt"

	"repldoc/internal/example"
	"repldoc/internal/protocol"
)

type replPhase int

const (
	replPending replPhase = iota
	replLive
	replKilling
)

func (p replPhase) String() string {
	switch p {
	case replPending:
		return "pending"
	case replLive:
		return "live"
	case replKilling:
		return "killing"
	default:
		return "unknown"
	}
}

type exampleState interface {
	kind() string
}

type replState struct {
	example example.ReplExample
	phase   replPhase
	session *protocol.Session
}

type expressionState struct {
	spawned bool
}

func (*replState) kind() string       { return "repl" }
func (*expressionState) kind() string { return "expression" }

// ExamplesState tracks every example that has not finished yet.
type ExamplesState struct {
	m map[example.ID]exampleState
}

// NewExamplesState returns an empty table.
func NewExamplesState() *ExamplesState {
	return &ExamplesState{m: make(map[example.ID]exampleState)}
}

// Insert registers a new example. IDs are never reused within a run.
func (e *ExamplesState) Insert(id example.ID, st exampleState) error {
	if _, exists := e.m[id]; exists {
		return fmt.Errorf("duplicate example id %s", id)
	}
	e.m[id] = st
	return nil
}

// Remove drops a finished example.
func (e *ExamplesState) Remove(id example.ID) error {
	if _, exists := e.m[id]; !exists {
		return fmt.Errorf("example %s not found", id)
	}
	delete(e.m, id)
	return nil
}

// Len is the number of unfinished examples.
func (e *ExamplesState) Len() int {
	return len(e.m)
}

func (e *ExamplesState) get(id example.ID) (exampleState, error) {
	st, ok := e.m[id]
	if !ok {
		return nil, fmt.Errorf("example %s not found", id)
	}
	return st, nil
}

func (e *ExamplesState) repl(id example.ID) (*replState, error) {
	st, err := e.get(id)
	if err != nil {
		return nil, err
	}
	rs, ok := st.(*replState)
	if !ok {
		return nil, fmt.Errorf("expected repl example state for %s, found %s", id, st.kind())
	}
	return rs, nil
}

func (e *ExamplesState) expression(id example.ID) (*expressionState, error) {
	st, err := e.get(id)
	if err != nil {
		return nil, err
	}
	es, ok := st.(*expressionState)
	if !ok {
		return nil, fmt.Errorf("expected expression example state for %s, found %s", id, st.kind())
	}
	return es, nil
}
