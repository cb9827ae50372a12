package common

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence and
// appends suffix when anything was dropped. Invalid bytes in s are replaced so
// the result is always valid UTF-8.
func Truncate(s string, max int, suffix string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
