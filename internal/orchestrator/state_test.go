package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/protocol"
	"repldoc/internal/repl"
)

func replExample(t *testing.T, id example.ID, transcript string) example.ReplExample {
	t.Helper()
	ex, err := example.NewReplExample(id, transcript, example.DefaultPrompt)
	require.NoError(t, err)
	return ex
}

// feed sends stream to the reducer as Read events and returns every output.
func feed(s *State, id example.ID, stream string) []Output {
	var out []Output
	for i := 0; i < len(stream); i++ {
		out = append(out, s.Event(ReplEvent{Event: repl.Read{ID: id, Byte: stream[i]}})...)
	}
	return out
}

const cl = protocol.ClearLineSequence

func TestState_OnePlusOne(t *testing.T) {
	id := example.NewID("doc.md", 3)
	s := NewState(protocol.ResyncOnMismatch)

	out := s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1 + 1\n2\n")})
	assert.Equal(t, []Output{ReplCommand{Command: repl.Spawn{ID: id}}}, out)

	assert.Empty(t, s.Event(ReplEvent{Event: repl.Spawned{ID: id}}))

	out = feed(s, id, cl)
	assert.Equal(t, []Output{ReplCommand{Command: repl.Query{ID: id, Line: example.MustQuery("1 + 1\n")}}}, out)
	assert.Empty(t, s.Event(ReplEvent{Event: repl.QueryWritten{ID: id, Query: example.MustQuery("1 + 1\n")}}))

	out = feed(s, id, cl+"\x1b[1m2\x1b[0m\r\n\r\n"+cl)
	assert.Equal(t, []Output{
		ReplCommand{Command: repl.Kill{ID: id}},
		Report{Line: "PASS: doc.md:3"},
	}, out)
	assert.Equal(t, 1, s.PendingReports())

	// The prompt drawn while the kill is in flight is ignored.
	assert.Empty(t, feed(s, id, "nix-repl> "))

	assert.Empty(t, s.Event(ReplEvent{Event: repl.Killed{ID: id}}))
	assert.Equal(t, []Output{Done{}}, s.Event(ReportFlushed{}))
}

func TestState_MismatchBlock(t *testing.T) {
	id := example.NewID("doc.md", 1)
	s := NewState(protocol.ResyncOnMismatch)

	s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1 + 1\n3\n")})
	s.Event(ReplEvent{Event: repl.Spawned{ID: id}})
	feed(s, id, cl)

	out := feed(s, id, cl+"2\n"+cl)
	require.Len(t, out, 1)
	done, ok := out[0].(Done)
	require.True(t, ok)
	require.Error(t, done.Err)
	assert.Equal(t, "doc.md:1\n\nActual:\n\n```\n2\n```\n\nExpected:\n\n```\n3\n```", done.Err.Error())

	var mismatch *protocol.MismatchError
	require.ErrorAs(t, done.Err, &mismatch)
	assert.Equal(t, "2", mismatch.Actual)

	var exErr *ExampleError
	require.ErrorAs(t, done.Err, &exErr)
	assert.Equal(t, id, exErr.ID)
}

func TestState_ExpressionFailureCarriesStderr(t *testing.T) {
	id := example.NewID("doc.md", 9)
	s := NewState(protocol.ResyncOnMismatch)

	out := s.Event(ExampleReady{Example: example.ExpressionExample{ID: id, Expression: "nope"}})
	assert.Equal(t, []Output{ExpressionCommand{Command: expression.Evaluate{
		Example: example.ExpressionExample{ID: id, Expression: "nope"},
	}}}, out)
	assert.Empty(t, s.Event(ExpressionEvent{Event: expression.Spawned{ID: id}}))

	out = s.Event(ExpressionEvent{Event: expression.Output{ID: id, ExitCode: 1, Stderr: []byte("error: undefined variable 'nope'\n")}})
	require.Len(t, out, 1)
	done := out[0].(Done)
	assert.Equal(t, "doc.md:9\nerror: undefined variable 'nope'\n", done.Err.Error())

	var evalErr *EvaluationError
	require.ErrorAs(t, done.Err, &evalErr)
	assert.Equal(t, 1, evalErr.ExitCode)
}

func TestState_ExpressionPass(t *testing.T) {
	id := example.NewID("doc.md", 9)
	s := NewState(protocol.ResyncOnMismatch)

	s.Event(ExampleReady{Example: example.ExpressionExample{ID: id, Expression: "1"}})
	s.Event(ExpressionEvent{Event: expression.Spawned{ID: id}})
	out := s.Event(ExpressionEvent{Event: expression.Output{ID: id, Stdout: []byte("1\n")}})
	assert.Equal(t, []Output{Report{Line: "PASS: doc.md:9"}}, out)
	assert.Equal(t, []Output{Done{}}, s.Event(ReportFlushed{}))
}

func TestState_DuplicateID(t *testing.T) {
	for name, second := range map[string]example.Example{
		"repl":       example.ReplExample{ID: example.NewID("a.md", 1), Entries: []example.ReplEntry{{Query: example.MustQuery("1\n"), ExpectedResult: "1"}}},
		"expression": example.ExpressionExample{ID: example.NewID("a.md", 1), Expression: "1"},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewState(protocol.ResyncOnMismatch)
			s.Event(ExampleReady{Example: example.ExpressionExample{ID: example.NewID("a.md", 1), Expression: "1"}})

			out := s.Event(ExampleReady{Example: second})
			require.Len(t, out, 1)
			done := out[0].(Done)
			assert.ErrorContains(t, done.Err, "duplicate example id a.md:1")
		})
	}
}

func TestState_FlushBeforeExit(t *testing.T) {
	passing := example.NewID("doc.md", 1)
	failing := example.NewID("doc.md", 2)
	s := NewState(protocol.ResyncOnMismatch)

	s.Event(ExampleReady{Example: example.ExpressionExample{ID: passing, Expression: "1"}})
	s.Event(ExampleReady{Example: example.ExpressionExample{ID: failing, Expression: "x"}})
	s.Event(ExpressionEvent{Event: expression.Spawned{ID: passing}})
	s.Event(ExpressionEvent{Event: expression.Spawned{ID: failing}})

	out := s.Event(ExpressionEvent{Event: expression.Output{ID: passing}})
	assert.Equal(t, []Output{Report{Line: "PASS: doc.md:1"}}, out)

	// The failure is recorded but held back until the pass line is flushed.
	out = s.Event(ExpressionEvent{Event: expression.Output{ID: failing, ExitCode: 1, Stderr: []byte("boom")}})
	assert.Empty(t, out)
	require.Error(t, s.Err())

	out = s.Event(ReportFlushed{})
	require.Len(t, out, 1)
	assert.EqualError(t, out[0].(Done).Err, "doc.md:2\nboom")
}

func TestState_FirstErrorWins(t *testing.T) {
	a := example.NewID("doc.md", 1)
	b := example.NewID("doc.md", 2)
	c := example.NewID("doc.md", 3)
	s := NewState(protocol.ResyncOnMismatch)

	for _, id := range []example.ID{a, b, c} {
		s.Event(ExampleReady{Example: example.ExpressionExample{ID: id, Expression: "x"}})
		s.Event(ExpressionEvent{Event: expression.Spawned{ID: id}})
	}
	s.Event(ExpressionEvent{Event: expression.Output{ID: a}})

	assert.Empty(t, s.Event(ExpressionEvent{Event: expression.Output{ID: b, ExitCode: 1, Stderr: []byte("first")}}))
	// Ignored once an error is recorded.
	assert.Empty(t, s.Event(ExpressionEvent{Event: expression.Output{ID: c, ExitCode: 1, Stderr: []byte("second")}}))

	out := s.Event(ReportFlushed{})
	require.Len(t, out, 1)
	assert.EqualError(t, out[0].(Done).Err, "doc.md:2\nfirst")
}

func TestState_SpawnFailure(t *testing.T) {
	id := example.NewID("doc.md", 5)
	s := NewState(protocol.ResyncOnMismatch)
	s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})

	out := s.Event(ReplEvent{Event: repl.Spawned{ID: id, Err: errors.New("executable file not found")}})
	require.Len(t, out, 1)
	assert.EqualError(t, out[0].(Done).Err, "doc.md:5: executable file not found")
}

func TestState_InternalConsistency(t *testing.T) {
	id := example.NewID("doc.md", 5)

	t.Run("spawned twice", func(t *testing.T) {
		s := NewState(protocol.ResyncOnMismatch)
		s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
		s.Event(ReplEvent{Event: repl.Spawned{ID: id}})
		out := s.Event(ReplEvent{Event: repl.Spawned{ID: id}})
		require.Len(t, out, 1)
		assert.ErrorContains(t, out[0].(Done).Err, "already live")
	})

	t.Run("kill ack for unknown example", func(t *testing.T) {
		s := NewState(protocol.ResyncOnMismatch)
		s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
		out := s.Event(ReplEvent{Event: repl.Killed{ID: example.NewID("other.md", 1)}})
		require.Len(t, out, 1)
		assert.ErrorContains(t, out[0].(Done).Err, "example other.md:1 not found")
	})

	t.Run("read before spawn", func(t *testing.T) {
		s := NewState(protocol.ResyncOnMismatch)
		s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
		out := s.Event(ReplEvent{Event: repl.Read{ID: id, Byte: '\r'}})
		require.Len(t, out, 1)
		assert.ErrorContains(t, out[0].(Done).Err, "before it was spawned")
	})

	t.Run("flush without report", func(t *testing.T) {
		s := NewState(protocol.ResyncOnMismatch)
		s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
		out := s.Event(ReportFlushed{})
		require.Len(t, out, 1)
		assert.ErrorContains(t, out[0].(Done).Err, "none pending")
	})

	t.Run("expression event for repl example", func(t *testing.T) {
		s := NewState(protocol.ResyncOnMismatch)
		s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
		out := s.Event(ExpressionEvent{Event: expression.Spawned{ID: id}})
		require.Len(t, out, 1)
		assert.ErrorContains(t, out[0].(Done).Err, "expected expression example state")
	})
}

func TestState_StreamFailure(t *testing.T) {
	id := example.NewID("doc.md", 5)
	s := NewState(protocol.ResyncOnMismatch)
	s.Event(ExampleReady{Example: replExample(t, id, "nix-repl> 1\n1\n")})
	s.Event(ReplEvent{Event: repl.Spawned{ID: id}})

	out := s.Event(ReplEvent{Event: repl.StreamFailed{ID: id, Err: errors.New("input/output error")}})
	require.Len(t, out, 1)
	assert.EqualError(t, out[0].(Done).Err, "doc.md:5: input/output error")
}

func TestExamplesState(t *testing.T) {
	es := NewExamplesState()
	id := example.NewID("a.md", 1)

	require.NoError(t, es.Insert(id, &expressionState{}))
	assert.Equal(t, 1, es.Len())
	assert.Error(t, es.Insert(id, &replState{}))

	require.NoError(t, es.Remove(id))
	assert.Zero(t, es.Len())
	assert.ErrorContains(t, es.Remove(id), "not found")
}

func TestState_CollaboratorFailureWaitsForFlush(t *testing.T) {
	passing := example.NewID("doc.md", 1)
	waiting := example.NewID("doc.md", 9)
	s := NewState(protocol.ResyncOnMismatch)

	s.Event(ExampleReady{Example: example.ExpressionExample{ID: passing, Expression: "1"}})
	s.Event(ExampleReady{Example: example.ExpressionExample{ID: waiting, Expression: "2"}})
	out := s.Event(ExpressionEvent{Event: expression.Output{ID: passing}})
	assert.Equal(t, []Output{Report{Line: "PASS: doc.md:1"}}, out)

	assert.Empty(t, s.Event(CollaboratorFailed{Name: "expression evaluator", Err: errors.New("boom")}))
	assert.EqualError(t, s.Err(), "expression evaluator: boom")

	out = s.Event(ReportFlushed{})
	require.Len(t, out, 1)
	assert.EqualError(t, out[0].(Done).Err, "expression evaluator: boom")
}
