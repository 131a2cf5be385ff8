package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/logger"
	"repldoc/internal/protocol"
	"repldoc/internal/repl"
)

// ExampleError attributes a fatal error to the example it happened in.
type ExampleError struct {
	ID  example.ID
	Err error
	sep string
}

func (e *ExampleError) Error() string {
	return e.ID.String() + e.sep + e.Err.Error()
}

func (e *ExampleError) Unwrap() error {
	return e.Err
}

func attribute(id example.ID, err error) *ExampleError {
	var mismatch *protocol.MismatchError
	if errors.As(err, &mismatch) {
		return &ExampleError{ID: id, Err: err, sep: "\n\n"}
	}
	return &ExampleError{ID: id, Err: err, sep: ": "}
}

// EvaluationError is the stderr of an expression evaluation that exited
// non-zero.
type EvaluationError struct {
	ExitCode int
	Stderr   string
}

func (e *EvaluationError) Error() string {
	return e.Stderr
}

// PassLine is the report line for a passing example.
func PassLine(id example.ID) string {
	return "PASS: " + id.String()
}

// State is the orchestrator reducer. It owns the table of unfinished
// examples, the count of reports not yet flushed and the first fatal error.
type State struct {
	examples       *ExamplesState
	pendingReports int
	err            error
	policy         protocol.ResyncPolicy
	log            *log.Logger
}

// NewState returns a State whose sessions recover from stream divergence
// according to policy.
func NewState(policy protocol.ResyncPolicy) *State {
	return &State{
		examples: NewExamplesState(),
		policy:   policy,
		log:      logger.NewStyledLogger("orchestrator"),
	}
}

// Err returns the first fatal error recorded, if any.
func (s *State) Err() error {
	return s.err
}

// PendingReports is the number of Report outputs not yet acknowledged.
func (s *State) PendingReports() int {
	return s.pendingReports
}

// Event reduces one input event into outputs.
//
// A fatal error is recorded once; later errors are logged and dropped. Once
// an error is recorded, only ReportFlushed events are still processed, and
// Done carrying the error is returned as soon as no reports are pending.
// Without an error, Done(nil) is returned when no examples remain and no
// reports are pending.
func (s *State) Event(ev Event) []Output {
	var out []Output
	if _, flush := ev.(ReportFlushed); s.err == nil || flush {
		var err error
		out, err = s.handle(ev)
		if err != nil {
			s.fail(err)
			out = nil
		}
	}

	if s.err != nil {
		if s.pendingReports == 0 {
			return []Output{Done{Err: s.err}}
		}
		return out
	}
	if s.examples.Len() == 0 && s.pendingReports == 0 {
		return []Output{Done{}}
	}
	return out
}

func (s *State) fail(err error) {
	if s.err != nil {
		s.log.Debug("dropping error after first failure", "error", err)
		return
	}
	s.log.Debug("run failed", "error", err)
	s.err = err
}

func (s *State) handle(ev Event) ([]Output, error) {
	switch e := ev.(type) {
	case ExampleReady:
		return s.exampleReady(e.Example)
	case ReplEvent:
		return s.replEvent(e.Event)
	case ExpressionEvent:
		return s.expressionEvent(e.Event)
	case ReportFlushed:
		if s.pendingReports == 0 {
			return nil, errors.New("report flushed with none pending")
		}
		s.pendingReports--
		return nil, nil
	case CollaboratorFailed:
		return nil, fmt.Errorf("%s: %w", e.Name, e.Err)
	default:
		return nil, fmt.Errorf("unknown event %T", ev)
	}
}

func (s *State) exampleReady(ex example.Example) ([]Output, error) {
	switch e := ex.(type) {
	case example.ReplExample:
		if err := s.examples.Insert(e.ID, &replState{example: e}); err != nil {
			return nil, err
		}
		return []Output{ReplCommand{Command: repl.Spawn{ID: e.ID}}}, nil
	case example.ExpressionExample:
		if err := s.examples.Insert(e.ID, &expressionState{}); err != nil {
			return nil, err
		}
		return []Output{ExpressionCommand{Command: expression.Evaluate{Example: e}}}, nil
	default:
		return nil, fmt.Errorf("unknown example type %T", ex)
	}
}

func (s *State) replEvent(ev repl.Event) ([]Output, error) {
	switch e := ev.(type) {
	case repl.Spawned:
		if e.Err != nil {
			return nil, attribute(e.ID, e.Err)
		}
		st, err := s.examples.repl(e.ID)
		if err != nil {
			return nil, err
		}
		if st.phase != replPending {
			return nil, fmt.Errorf("spawned session %s is already %s", e.ID, st.phase)
		}
		st.phase = replLive
		st.session = protocol.NewSession(st.example.Entries, s.policy)
		s.log.Debug("session live", "example", e.ID, "entries", len(st.example.Entries))
		return nil, nil

	case repl.QueryWritten:
		if e.Err != nil {
			return nil, attribute(e.ID, e.Err)
		}
		return nil, nil

	case repl.Killed:
		if e.Err != nil {
			return nil, attribute(e.ID, e.Err)
		}
		return nil, s.examples.Remove(e.ID)

	case repl.Read:
		return s.read(e.ID, e.Byte)

	case repl.StreamFailed:
		st, err := s.examples.repl(e.ID)
		if err == nil && st.phase == replKilling {
			return nil, nil
		}
		return nil, attribute(e.ID, e.Err)

	default:
		return nil, fmt.Errorf("unknown repl event %T", ev)
	}
}

func (s *State) read(id example.ID, b byte) ([]Output, error) {
	st, err := s.examples.repl(id)
	if err != nil {
		return nil, err
	}
	switch st.phase {
	case replKilling:
		// The interpreter keeps drawing its prompt until the kill lands.
		return nil, nil
	case replPending:
		return nil, fmt.Errorf("read from session %s before it was spawned", id)
	}

	step, err := st.session.Feed(b)
	if err != nil {
		return nil, attribute(id, err)
	}

	switch step.Kind {
	case protocol.StepQuery:
		s.log.Debug("query", "example", id, "query", strings.TrimSuffix(step.Query.String(), "\n"))
		return []Output{ReplCommand{Command: repl.Query{ID: id, Line: step.Query}}}, nil
	case protocol.StepEnd:
		st.phase = replKilling
		return []Output{ReplCommand{Command: repl.Kill{ID: id}}, s.report(PassLine(id))}, nil
	default:
		return nil, nil
	}
}

func (s *State) expressionEvent(ev expression.Event) ([]Output, error) {
	switch e := ev.(type) {
	case expression.Spawned:
		if e.Err != nil {
			return nil, attribute(e.ID, e.Err)
		}
		st, err := s.examples.expression(e.ID)
		if err != nil {
			return nil, err
		}
		if st.spawned {
			return nil, fmt.Errorf("expression %s spawned twice", e.ID)
		}
		st.spawned = true
		return nil, nil

	case expression.Output:
		if e.Err != nil {
			return nil, attribute(e.ID, e.Err)
		}
		if e.ExitCode != 0 {
			stderr := strings.ToValidUTF8(string(e.Stderr), "�")
			return nil, &ExampleError{ID: e.ID, Err: &EvaluationError{ExitCode: e.ExitCode, Stderr: stderr}, sep: "\n"}
		}
		if err := s.examples.Remove(e.ID); err != nil {
			return nil, err
		}
		return []Output{s.report(PassLine(e.ID))}, nil

	default:
		return nil, fmt.Errorf("unknown expression event %T", ev)
	}
}

func (s *State) report(line string) Output {
	s.pendingReports++
	return Report{Line: line}
}
