package http

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputBytes bounds the raw text field of a callback.
const MaxInputBytes = 4096

var (
	ErrInputTooLong    = errors.New("input exceeds maximum length")
	ErrInvalidEncoding = errors.New("input is not valid UTF-8")
)

// SanitizeInput rejects oversized or malformed input and strips control characters.
func SanitizeInput(s string) (string, error) {
	if len(s) > MaxInputBytes {
		return "", ErrInputTooLong
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidEncoding
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s), nil
}

// LastSegment returns the newest input of a cumulative "1*2*John" text.
// Trailing empty segments are ignored.
func LastSegment(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}
