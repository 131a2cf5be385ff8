package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"repldoc/internal/example"
)

// ResyncPolicy decides what happens when the stream diverges from an
// expected clear sequence.
type ResyncPolicy int

const (
	// ResyncOnMismatch discards bytes up to the next line feed and then
	// waits for a fresh clear sequence.
	ResyncOnMismatch ResyncPolicy = iota
	// FailOnMismatch turns any divergence into a *ProtocolError.
	FailOnMismatch
)

// ParseResyncPolicy maps a configuration value to a ResyncPolicy.
func ParseResyncPolicy(s string) (ResyncPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "resync", "line":
		return ResyncOnMismatch, nil
	case "fail", "strict":
		return FailOnMismatch, nil
	default:
		return ResyncOnMismatch, fmt.Errorf("unknown resync policy %q", s)
	}
}

func (p ResyncPolicy) String() string {
	if p == FailOnMismatch {
		return "fail"
	}
	return "resync"
}

// StepKind says what the caller must do after feeding a byte.
type StepKind int

const (
	// StepWait means keep reading.
	StepWait StepKind = iota
	// StepQuery means write Step.Query to the session.
	StepQuery
	// StepEnd means every entry has been verified; the session can be killed.
	StepEnd
)

// Step is the result of Session.Feed.
type Step struct {
	Kind  StepKind
	Query example.Query
}

// MismatchError reports a result that differs from the documented one.
// Both texts are sanitized.
type MismatchError struct {
	Actual   string
	Expected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Actual:\n\n```\n%s\n```\n\nExpected:\n\n```\n%s\n```", e.Actual, e.Expected)
}

// ProtocolError is returned under FailOnMismatch when a byte diverges from
// the clear sequence.
type ProtocolError struct {
	Byte  byte
	State string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected byte %q while %s", e.Byte, e.State)
}

// ErrSessionEnded is returned when bytes are fed after StepEnd.
var ErrSessionEnded = errors.New("session already ended")

var clearLineBytes = []byte(ClearLineSequence)

type expecting interface {
	name() string
}

type awaitingInitialClear struct {
	progress ClearLine
}

type awaitingResultClear struct {
	progress ClearLine
	expected string
}

type accumulatingResult struct {
	acc      []byte
	expected string
}

type resyncing struct{}

type ended struct{}

func (*awaitingInitialClear) name() string { return "awaiting initial clear" }
func (*awaitingResultClear) name() string  { return "awaiting result clear" }
func (*accumulatingResult) name() string   { return "accumulating result" }
func (*resyncing) name() string            { return "resyncing" }
func (*ended) name() string                { return "ended" }

// Session drives one REPL example through its entries, one output byte at a
// time.
//
// A session starts by waiting for the clear sequence that precedes the first
// prompt. Each completed clear sequence in that state releases the next
// query. After a query the session waits for the clear sequence that
// precedes the result, accumulates the result up to the next clear sequence
// (which precedes the next prompt), and compares it with the expectation.
type Session struct {
	remaining []example.ReplEntry
	expecting expecting
	policy    ResyncPolicy
}

// NewSession returns a session that will verify entries in order.
func NewSession(entries []example.ReplEntry, policy ResyncPolicy) *Session {
	return &Session{
		remaining: entries,
		expecting: &awaitingInitialClear{progress: StartClearLine()},
		policy:    policy,
	}
}

// State names the current expectation, for logging.
func (s *Session) State() string {
	return s.expecting.name()
}

// Remaining is the number of entries whose query has not been released yet.
func (s *Session) Remaining() int {
	return len(s.remaining)
}

// Feed consumes one byte of session output.
func (s *Session) Feed(b byte) (Step, error) {
	switch e := s.expecting.(type) {
	case *awaitingInitialClear:
		next, status := e.progress.Feed(b)
		switch status {
		case MatchInProgress:
			e.progress = next
			return Step{Kind: StepWait}, nil
		case MatchComplete:
			return s.advance(), nil
		default:
			return s.mismatch(b)
		}

	case *awaitingResultClear:
		next, status := e.progress.Feed(b)
		switch status {
		case MatchInProgress:
			e.progress = next
			return Step{Kind: StepWait}, nil
		case MatchComplete:
			s.expecting = &accumulatingResult{expected: e.expected}
			return Step{Kind: StepWait}, nil
		default:
			return s.mismatch(b)
		}

	case *accumulatingResult:
		e.acc = append(e.acc, b)
		raw, found := bytes.CutSuffix(e.acc, clearLineBytes)
		if !found {
			return Step{Kind: StepWait}, nil
		}
		actual, err := Sanitize(raw)
		if err != nil {
			return Step{}, err
		}
		actual = strings.TrimRight(actual, "\n")
		if actual != e.expected {
			return Step{}, &MismatchError{Actual: actual, Expected: e.expected}
		}
		return s.advance(), nil

	case *resyncing:
		if b == '\n' {
			s.expecting = &awaitingInitialClear{progress: StartClearLine()}
		}
		return Step{Kind: StepWait}, nil

	case *ended:
		return Step{}, ErrSessionEnded
	}

	return Step{}, fmt.Errorf("session in unknown state %T", s.expecting)
}

// advance releases the next query, or ends the session when none remain.
func (s *Session) advance() Step {
	if len(s.remaining) == 0 {
		s.expecting = &ended{}
		return Step{Kind: StepEnd}
	}
	entry := s.remaining[0]
	s.remaining = s.remaining[1:]
	s.expecting = &awaitingResultClear{progress: StartClearLine(), expected: entry.ExpectedResult}
	return Step{Kind: StepQuery, Query: entry.Query}
}

func (s *Session) mismatch(b byte) (Step, error) {
	if s.policy == FailOnMismatch {
		return Step{}, &ProtocolError{Byte: b, State: s.expecting.name()}
	}
	s.expecting = &resyncing{}
	return Step{Kind: StepWait}, nil
}
