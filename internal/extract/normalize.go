package extract

import (
	"regexp"
	"strings"
)

var reMultiNewline = regexp.MustCompile(`\n{2,}`)

// Normalize canonicalizes line endings and blank lines and trims the result.
// Text within a line (case, punctuation, spacing) is left untouched.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ReplaceAll(raw, "\r", "\n")
	s = reMultiNewline.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
