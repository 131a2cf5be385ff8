// Package output writes the run report: one line per passing example, and
// the failure block when the run fails.
// Styling is injected through StyleProvider so the report degrades to plain
// text on terminals without colour and in tests.
package output

// StyleProvider supplies styles for semantic output types.
type StyleProvider interface {
	// GetStyle returns a TextStyle for the given semantic type.
	GetStyle(semantic string) TextStyle

	// IsAvailable returns true if the provider can render styled text.
	IsAvailable() bool
}

// TextStyle renders text with styling.
type TextStyle interface {
	Render(text string) string
}

// SemanticType defines the semantic meaning of output for consistent styling.
type SemanticType string

const (
	// SemanticSuccess represents a passing verdict.
	SemanticSuccess SemanticType = "success"
	// SemanticError represents a failing verdict.
	SemanticError SemanticType = "error"
	// SemanticHighlight represents an example id.
	SemanticHighlight SemanticType = "highlight"
	// SemanticInsert represents text present only in the actual output.
	SemanticInsert SemanticType = "insert"
	// SemanticDelete represents text present only in the expected output.
	SemanticDelete SemanticType = "delete"
)
