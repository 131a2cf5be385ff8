package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// PlainTextStyle implements TextStyle without any styling.
type PlainTextStyle struct{}

// Render returns text unchanged.
func (PlainTextStyle) Render(text string) string {
	return text
}

// lipglossStyle adapts a lipgloss style to TextStyle.
type lipglossStyle struct {
	style lipgloss.Style
}

// Render renders text with the wrapped style.
func (l lipglossStyle) Render(text string) string {
	return l.style.Render(text)
}

var (
	_ TextStyle     = PlainTextStyle{}
	_ TextStyle     = lipglossStyle{}
	_ StyleProvider = (*TerminalStyleProvider)(nil)
)

// TerminalStyleProvider styles report output with lipgloss when the
// destination supports colour.
type TerminalStyleProvider struct {
	renderer *lipgloss.Renderer
	styles   map[SemanticType]lipgloss.Style
}

// NewTerminalStyleProvider detects the colour profile of w.
func NewTerminalStyleProvider(w io.Writer) *TerminalStyleProvider {
	r := lipgloss.NewRenderer(w)
	return &TerminalStyleProvider{
		renderer: r,
		styles: map[SemanticType]lipgloss.Style{
			SemanticSuccess:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
			SemanticError:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			SemanticHighlight: r.NewStyle().Foreground(lipgloss.Color("39")),
			SemanticInsert:    r.NewStyle().Foreground(lipgloss.Color("42")),
			SemanticDelete:    r.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true),
		},
	}
}

// GetStyle implements StyleProvider.
func (t *TerminalStyleProvider) GetStyle(semantic string) TextStyle {
	if style, ok := t.styles[SemanticType(semantic)]; ok {
		return lipglossStyle{style: style}
	}
	return PlainTextStyle{}
}

// IsAvailable reports whether the destination renders colour.
func (t *TerminalStyleProvider) IsAvailable() bool {
	return t.renderer.ColorProfile() != termenv.Ascii
}
