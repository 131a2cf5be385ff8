// Package example provides the data model for documentation examples:
// identities, REPL transcripts and plain expressions.
package example

import (
	"cmp"
	"fmt"
)

// ID identifies one documentation example by the file it was found in and
// the line of its opening fence. IDs are comparable and totally ordered.
type ID struct {
	Path string
	Line int
}

// NewID creates a new example ID.
func NewID(path string, line int) ID {
	return ID{Path: path, Line: line}
}

// String renders the ID as "path:line", the form used in every report line.
func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Path, id.Line)
}

// Compare orders IDs by path, then by line.
func (id ID) Compare(other ID) int {
	if c := cmp.Compare(id.Path, other.Path); c != 0 {
		return c
	}
	return cmp.Compare(id.Line, other.Line)
}
