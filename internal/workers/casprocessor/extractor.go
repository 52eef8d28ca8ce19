package casprocessor

import (
	"fmt"
	"unicode/utf8"
)

// TextExtractor turns a downloaded document into the raw statement text the
// parser consumes.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// PlainTextExtractor handles statements exported as plain text. Binary
// uploads are rejected up front so the parser never sees garbage.
type PlainTextExtractor struct{}

// Extract validates and returns the document bytes as text.
func (PlainTextExtractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("document is empty")
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid text")
	}
	return string(data), nil
}
