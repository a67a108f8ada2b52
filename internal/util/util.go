package util

import "strings"

// TruncateString shortens s to at most maxLen runes, ending in "..." when cut.
// With preserveWords the cut moves back to the last whitespace when one exists.
func TruncateString(s string, maxLen int, preserveWords bool) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."[:maxLen]
	}
	cut := maxLen - 3
	if preserveWords {
		if idx := lastSpace(runes, cut); idx > 0 {
			cut = idx
		}
	}
	return string(runes[:cut]) + "..."
}

// Preview collapses runs of whitespace (including newlines) to single spaces
// and truncates the result, for logging quotes and answer snippets on one line.
func Preview(s string, maxLen int) string {
	return TruncateString(strings.Join(strings.Fields(s), " "), maxLen, true)
}

func lastSpace(runes []rune, pos int) int {
	if pos > len(runes) {
		pos = len(runes)
	}
	for i := pos - 1; i >= 0; i-- {
		switch runes[i] {
		case ' ', '\t', '\n':
			return i
		}
	}
	return -1
}
