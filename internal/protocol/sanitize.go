package protocol

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// ErrInvalidUTF8 is returned by Sanitize for output that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("session output is not valid UTF-8")

// Sanitize removes terminal escape sequences and then every carriage return
// from raw session output, leaving what a plain-text rendering would show.
func Sanitize(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return SanitizeString(string(raw)), nil
}

// SanitizeString is Sanitize for text already known to be valid UTF-8.
func SanitizeString(s string) string {
	return strings.ReplaceAll(ansi.Strip(s), "\r", "")
}
