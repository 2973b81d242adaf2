// Package util holds small helpers shared by the HTTP layer.
package util

import (
	"regexp"
	"unicode/utf8"
)

var controlChars = regexp.MustCompile(`(\r\n|[\x00-\x1F\x7F])+`)

// SanitizeForLog replaces runs of control characters, newlines included,
// with a single space so user input cannot forge log lines.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	return controlChars.ReplaceAllString(s, " ")
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
