package example

import (
	"fmt"
	"strings"
)

// Query is one line of interpreter input. It always ends in exactly one
// line feed and contains no other line feed or carriage return.
type Query struct {
	line string
}

// NewQuery validates s as a single LF-terminated line.
func NewQuery(s string) (Query, error) {
	body, ok := strings.CutSuffix(s, "\n")
	if !ok {
		return Query{}, fmt.Errorf("does not end with LF %q", s)
	}
	if strings.Contains(body, "\r") {
		return Query{}, fmt.Errorf("found CR %q", s)
	}
	if strings.Contains(body, "\n") {
		return Query{}, fmt.Errorf("newline before end %q", s)
	}
	return Query{line: s}, nil
}

// MustQuery is like NewQuery but panics on invalid input. Intended for tests
// and literals.
func MustQuery(s string) Query {
	q, err := NewQuery(s)
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the query including its trailing line feed.
func (q Query) String() string {
	return q.line
}

// Bytes returns the bytes to write to the interpreter.
func (q Query) Bytes() []byte {
	return []byte(q.line)
}
