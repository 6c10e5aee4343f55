package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/medreports/constants"
)

// PatientDetails maps each of constants.PatientFields to its extracted value.
// Every field is present; unmatched ones hold constants.NotAvailable.
type PatientDetails map[string]string

// Gender returns the extracted gender or "" when it was not found.
func (p PatientDetails) Gender() string {
	g := p[constants.PatientGender]
	if g == constants.NotAvailable {
		return ""
	}
	return g
}

type fieldPattern struct {
	re    *regexp.Regexp
	value func(m []string) string
}

func group1(m []string) string { return m[1] }

// Patterns per field, tried in order; the first one matching anywhere in the text wins.
var patientPatterns = map[string][]fieldPattern{
	constants.PatientID: {
		{regexp.MustCompile(`(?i)Patient\s*ID\s*[:\-]\s*([A-Za-z0-9\-]+)`), group1},
		{regexp.MustCompile(`(?i)UHID\s*[:\-]\s*([A-Za-z0-9\-]+)`), group1},
	},
	constants.PatientAge: {
		{regexp.MustCompile(`(?i)Age\s*[:\-]\s*(\d{1,3})`), group1},
		{regexp.MustCompile(`(?i)(\d{1,3})\s*Years`), group1},
	},
	constants.PatientGender: {
		{regexp.MustCompile(`(?i)Gender\s*[:\-]\s*(Male|Female|Other|M|F)\b`), group1},
		{regexp.MustCompile(`(?i)Sex\s*[:\-]\s*(Male|Female|M|F)\b`), group1},
	},
	constants.PatientBloodGroup: {
		{regexp.MustCompile(`(?i)Blood\s*Group\s*[:\-]\s*(A\+|A-|B\+|B-|AB\+|AB-|O\+|O-)`), group1},
		{regexp.MustCompile(`(?i)Blood\s*Group\s*[:\-]\s*(A|B|AB|O)\s*(Positive|Negative)`), func(m []string) string {
			return m[1] + " " + m[2]
		}},
	},
	constants.PatientReportDate: {
		{regexp.MustCompile(`(?i)Report\s*Date\s*[:\-]\s*([0-9\-/]+)`), group1},
		{regexp.MustCompile(`(?i)Date\s*[:\-]\s*([0-9\-/]+)`), group1},
	},
}

var (
	rePositive = regexp.MustCompile(`(?i)\s*positive`)
	reNegative = regexp.MustCompile(`(?i)\s*negative`)
)

// ExtractPatientDetails pulls demographic and report metadata out of normalized text.
func ExtractPatientDetails(text string) PatientDetails {
	out := make(PatientDetails, len(constants.PatientFields))
	for _, field := range constants.PatientFields {
		value := constants.NotAvailable
		for _, p := range patientPatterns[field] {
			if m := p.re.FindStringSubmatch(text); m != nil {
				value = strings.TrimSpace(p.value(m))
				break
			}
		}
		out[field] = normalizeField(field, value)
	}
	return out
}

func normalizeField(field, value string) string {
	if value == constants.NotAvailable || value == "" {
		return constants.NotAvailable
	}
	switch field {
	case constants.PatientGender:
		switch strings.ToLower(value) {
		case "m", "male":
			return "Male"
		case "f", "female":
			return "Female"
		}
	case constants.PatientBloodGroup:
		value = rePositive.ReplaceAllString(value, "+")
		value = reNegative.ReplaceAllString(value, "-")
		return strings.ToUpper(value)
	}
	return value
}
