package compare

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/medreports/internal/ranges"
)

// FormatNumber prints f in its shortest form: 60, 36.1, 150000.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatBounds renders "min-max", "≥min", "≤max" or "Not Defined".
func FormatBounds(b ranges.Bounds) string {
	switch {
	case b.Min != nil && b.Max != nil:
		return FormatNumber(*b.Min) + "-" + FormatNumber(*b.Max)
	case b.Min != nil:
		return "≥" + FormatNumber(*b.Min)
	case b.Max != nil:
		return "≤" + FormatNumber(*b.Max)
	default:
		return "Not Defined"
	}
}

// DisplayName turns a vital key like "body_temperature" into "Body Temperature".
func DisplayName(key string) string {
	// Casers keep state, so one per call.
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}
