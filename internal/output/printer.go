package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// passPrefix starts every report line of a passing example.
const passPrefix = "PASS: "

// Printer writes report lines and records which examples passed.
// It is safe for concurrent use.
type Printer struct {
	styleProvider StyleProvider
	writer        io.Writer
	forcePlain    bool

	mu     sync.Mutex
	passed []string
}

// NewPrinter creates a new Printer with the given options.
// By default, it writes to os.Stderr.
func NewPrinter(options ...Option) *Printer {
	p := &Printer{
		writer: os.Stderr,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Error writes the final failure message of a run: an "Error:" verdict
// followed by err's message.
func (p *Printer) Error(err error) {
	p.write(p.style(SemanticError, "Error:") + " " + err.Error() + "\n")
}

// Report writes one report line. Lines for passing examples are recorded
// and, when styled, the verdict and the id are coloured separately.
func (p *Printer) Report(line string) {
	id, passed := strings.CutPrefix(line, passPrefix)
	if !passed {
		p.write(line + "\n")
		return
	}

	p.mu.Lock()
	p.passed = append(p.passed, id)
	p.mu.Unlock()

	p.write(p.style(SemanticSuccess, strings.TrimSpace(passPrefix)) + " " + p.style(SemanticHighlight, id) + "\n")
}

// Run writes every line received on lines and acknowledges each one on
// flushed after it has been written.
func (p *Printer) Run(ctx context.Context, lines <-chan string, flushed chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			p.Report(line)
			select {
			case flushed <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Passed returns the ids of passing examples in report order.
func (p *Printer) Passed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.passed...)
}

// Style renders text with the style for semantic, or returns it unchanged
// when the printer is not stylable.
func (p *Printer) Style(semantic SemanticType, text string) string {
	return p.style(semantic, text)
}

func (p *Printer) style(semantic SemanticType, text string) string {
	if !p.IsStylable() {
		return text
	}
	return p.styleProvider.GetStyle(string(semantic)).Render(text)
}

func (p *Printer) write(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.writer, text)
}

// IsStylable returns true if the printer can apply styles.
func (p *Printer) IsStylable() bool {
	return !p.forcePlain && p.styleProvider != nil && p.styleProvider.IsAvailable()
}
