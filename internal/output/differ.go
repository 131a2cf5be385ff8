package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"repldoc/internal/protocol"
)

// Differ renders character-level differences between an actual and an
// expected result.
type Differ struct {
	printer *Printer
}

// NewDiffer creates a differ that styles its output with printer.
func NewDiffer(printer *Printer) *Differ {
	return &Differ{printer: printer}
}

// Diff renders the edits turning expected into actual, one per line:
// "- " for deleted text, "+ " for inserted text and "  " for context.
// Long context runs are shortened.
func (d *Differ) Diff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var b strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(d.printer.Style(SemanticDelete, fmt.Sprintf("- %q", diff.Text)))
		case diffmatchpatch.DiffInsert:
			b.WriteString(d.printer.Style(SemanticInsert, fmt.Sprintf("+ %q", diff.Text)))
		case diffmatchpatch.DiffEqual:
			if len(diff.Text) > 50 {
				fmt.Fprintf(&b, "  %q...", diff.Text[:47])
			} else {
				fmt.Fprintf(&b, "  %q", diff.Text)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Decorate appends a "Diff:" section to err's message when err carries a
// result mismatch. Other errors are returned unchanged.
func (d *Differ) Decorate(err error) error {
	var mismatch *protocol.MismatchError
	if !errors.As(err, &mismatch) {
		return err
	}
	return &diffError{err: err, diff: d.Diff(mismatch.Expected, mismatch.Actual)}
}

type diffError struct {
	err  error
	diff string
}

func (e *diffError) Error() string {
	return e.err.Error() + "\n\nDiff:\n\n" + e.diff
}

func (e *diffError) Unwrap() error {
	return e.err
}
