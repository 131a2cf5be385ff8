// Package extract finds executable examples in markdown documentation.
//
// Every fenced code block whose info string starts with the REPL tag becomes
// a REPL example, and every block starting with the expression tag becomes an
// expression example. A block whose info string carries the skip marker as a
// later word is ignored.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"repldoc/internal/example"
	"repldoc/internal/logger"
)

// ErrNoExamples is returned by Obtain when no file yields an example.
var ErrNoExamples = example.ErrNoExamples

// Options select which code blocks are examples.
type Options struct {
	ReplTag       string
	ExpressionTag string
	SkipMarker    string
	Prompt        string
}

// DefaultOptions recognise Nix documentation conventions.
func DefaultOptions() Options {
	return Options{
		ReplTag:       "nix-repl",
		ExpressionTag: "nix",
		SkipMarker:    "skip",
		Prompt:        example.DefaultPrompt,
	}
}

// Obtain expands pattern, which may contain "**", and extracts the examples
// of every matching file in path order.
func Obtain(pattern string, opts Options) ([]example.Example, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid sources pattern %q: %w", pattern, err)
	}
	slices.Sort(paths)

	var examples []example.Example
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		found, err := Parse(path, source, opts)
		if err != nil {
			return nil, err
		}
		logger.Debug("extracted examples", "path", path, "count", len(found))
		examples = append(examples, found...)
	}

	if len(examples) == 0 {
		return nil, ErrNoExamples
	}
	return examples, nil
}

// Parse extracts the examples of one markdown document. Each example is
// identified by path and the line of its opening fence.
func Parse(path string, source []byte, opts Options) ([]example.Example, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var examples []example.Example
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok || block.Info == nil {
			return ast.WalkContinue, nil
		}

		words := strings.Fields(string(block.Info.Segment.Value(source)))
		if len(words) == 0 || slices.Contains(words[1:], opts.SkipMarker) {
			return ast.WalkContinue, nil
		}

		id := example.NewID(path, lineOf(source, block.Info.Segment.Start))
		switch words[0] {
		case opts.ReplTag:
			ex, err := example.NewReplExample(id, content(block, source), opts.Prompt)
			if err != nil {
				return ast.WalkStop, fmt.Errorf("%s: %w", id, err)
			}
			examples = append(examples, ex)
		case opts.ExpressionTag:
			examples = append(examples, example.ExpressionExample{ID: id, Expression: content(block, source)})
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return examples, nil
}

// content returns the literal text of a code block.
func content(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line containing offset.
func lineOf(source []byte, offset int) int {
	return bytes.Count(source[:offset], []byte("\n")) + 1
}
