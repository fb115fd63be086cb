// Package utils provides common utility functions.
package utils

import (
	"strings"
	"unicode/utf8"
)

// CollapseWhitespace replaces every whitespace run with a single space and trims the ends.
func CollapseWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateRunes returns at most maxRunes characters of str, never splitting a UTF-8 sequence.
func TruncateRunes(str string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	if utf8.RuneCountInString(str) <= maxRunes {
		return str
	}

	count := 0
	for i := range str {
		if count == maxRunes {
			return str[:i]
		}

		count++
	}

	return str
}
