package output

import "os"

// NewStderrPrinter returns a printer for the report stream, styled when
// stderr renders colour and NO_COLOR is unset.
func NewStderrPrinter(options ...Option) *Printer {
	opts := []Option{WithWriter(os.Stderr), WithStyles(NewTerminalStyleProvider(os.Stderr))}
	if os.Getenv("NO_COLOR") != "" {
		opts = append(opts, PlainText())
	}
	return NewPrinter(append(opts, options...)...)
}
