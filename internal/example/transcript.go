package example

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultPrompt is the prompt the Nix REPL draws before reading a query.
const DefaultPrompt = "nix-repl> "

var (
	// ErrMissingPrompt is returned when a transcript does not open with the prompt.
	ErrMissingPrompt = errors.New("repl example must start with a prompt")
	// ErrMissingLineFeed is returned when a query is the last thing in a transcript chunk.
	ErrMissingLineFeed = errors.New("query must be followed by a line feed")
)

// ParseReplEntries parses a REPL transcript such as
//
//	nix-repl> 1 + 1
//	2
//
//	nix-repl> a = 1
//
// into its query/expected-result pairs. Each entry starts at a line beginning
// with prompt; the rest of that line is the query, and everything up to the
// next prompt line is the expected result with trailing whitespace removed.
func ParseReplEntries(text, prompt string) ([]ReplEntry, error) {
	rest, ok := strings.CutPrefix(text, prompt)
	if !ok {
		return nil, ErrMissingPrompt
	}

	chunks := strings.Split(rest, "\n"+prompt)
	entries := make([]ReplEntry, 0, len(chunks))
	for _, chunk := range chunks {
		queryText, expected, ok := strings.Cut(chunk, "\n")
		if !ok {
			return nil, ErrMissingLineFeed
		}

		query, err := NewQuery(queryText + "\n")
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}

		entries = append(entries, ReplEntry{
			Query:          query,
			ExpectedResult: strings.TrimRightFunc(expected, unicode.IsSpace),
		})
	}

	return entries, nil
}

// NewReplExample parses text with the given prompt and attaches id.
func NewReplExample(id ID, text, prompt string) (ReplExample, error) {
	entries, err := ParseReplEntries(text, prompt)
	if err != nil {
		return ReplExample{}, err
	}
	return ReplExample{ID: id, Entries: entries}, nil
}
