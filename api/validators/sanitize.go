package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims, collapses inner whitespace and truncates to maxLen
// runes so Devanagari and Gujarati names are never cut mid-character.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxLen]))
}
