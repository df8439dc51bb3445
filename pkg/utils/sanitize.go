package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// SanitizeString trims whitespace and drops control characters. The text is
// stored as typed; escaping is left to whatever renders it.
func SanitizeString(input string) string {
	return removeControlChars(strings.TrimSpace(input))
}

// SanitizeAddress trims an address field and strips markup without escaping,
// so "10.0.0.7" and "cam.local:8080" survive untouched.
func SanitizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = stripHTML(addr)
	return removeControlChars(addr)
}

// HasControlChars reports whether input contains a non-printable rune other
// than a plain space.
func HasControlChars(input string) bool {
	for _, r := range input {
		if r != ' ' && !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

// stripHTML removes HTML tags from string
func stripHTML(input string) string {
	return htmlTag.ReplaceAllString(input, "")
}

// removeControlChars removes control characters from string
func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
