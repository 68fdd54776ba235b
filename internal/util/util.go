// Package util provides small string helpers shared by the scrubber packages.
package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsBlank reports whether s is empty or consists only of whitespace.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// TruncateLeading shortens s to at most width runes by dropping its head and
// prefixing an ellipsis, so the end of the text stays readable.
func TruncateLeading(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	runes := []rune(s)
	return "…" + string(runes[n-width+1:])
}

// Clamp limits v to [lo, hi].
func Clamp(lo, v, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
