// Package protocol interprets the raw byte stream of an interactive REPL
// session running under a pseudo-terminal.
//
// The only terminal control sequence it understands is the line-erase
// sequence the REPL draws before every prompt and every result: a carriage
// return followed by CSI K. Everything else is treated as text, and any
// other escape sequences are removed by Sanitize before comparison.
package protocol

// ClearLineSequence is the "erase current line" sequence: CR, ESC, '[', 'K'.
const ClearLineSequence = "\r\x1b[K"

// MatchStatus is the outcome of feeding one byte to a ClearLine matcher.
type MatchStatus int

const (
	// MatchInProgress means the byte matched and more bytes are expected.
	MatchInProgress MatchStatus = iota
	// MatchComplete means the byte matched the final byte of the sequence.
	MatchComplete
	// MatchMismatch means the byte diverged from the sequence.
	MatchMismatch
)

func (s MatchStatus) String() string {
	switch s {
	case MatchInProgress:
		return "InProgress"
	case MatchComplete:
		return "Complete"
	case MatchMismatch:
		return "Mismatch"
	default:
		return "Unknown"
	}
}

// ClearLine tracks progress through ClearLineSequence. The zero value is the
// initial position; values are immutable and Feed returns the next position.
type ClearLine struct {
	pos int
}

// StartClearLine returns a matcher in its initial position.
func StartClearLine() ClearLine {
	return ClearLine{}
}

// Feed matches b against the next expected byte of the sequence.
func (c ClearLine) Feed(b byte) (ClearLine, MatchStatus) {
	if c.pos >= len(ClearLineSequence) || b != ClearLineSequence[c.pos] {
		return c, MatchMismatch
	}
	next := ClearLine{pos: c.pos + 1}
	if next.pos == len(ClearLineSequence) {
		return next, MatchComplete
	}
	return next, MatchInProgress
}
