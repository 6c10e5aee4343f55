package extract

import (
	"regexp"

	"github.com/joseph-ayodele/medreports/constants"
)

type vitalPattern struct {
	re    *regexp.Regexp
	store func(v *Vitals, m []string)
}

// Label first, then anything on the same line, then the value. Order here is the
// insertion order of the result.
var vitalPatterns = []vitalPattern{
	{regexp.MustCompile(`(?i)Blood\s*Pressure.*?(\d{2,3})\s*/\s*(\d{2,3})`), func(v *Vitals, m []string) {
		v.Set(constants.VitalBloodPressure, m[1]+"/"+m[2])
	}},
	{regexp.MustCompile(`(?i)(Heart\s*Rate|Pulse).*?(\d{2,3})\s*(bpm|beats)?`), func(v *Vitals, m []string) {
		v.Set(constants.VitalHeartRate, m[2])
	}},
	{regexp.MustCompile(`(?i)Respiratory\s*Rate.*?(\d{1,2})`), func(v *Vitals, m []string) {
		v.Set(constants.VitalRespiratoryRate, m[1])
	}},
	{regexp.MustCompile(`(?i)(Body\s*Temperature|Temperature).*?([\d.]+)\s*(C|F)`), func(v *Vitals, m []string) {
		v.Set(constants.VitalBodyTemperature, m[2])
	}},
	{regexp.MustCompile(`(?i)(SpO2|Oxygen\s*Saturation).*?(\d{2,3})\s*%`), func(v *Vitals, m []string) {
		v.Set(constants.VitalSpO2, m[2])
	}},
	// a single "Blood Glucose N/N" pair carries both readings
	{regexp.MustCompile(`(?i)Blood\s*Glucose.*?(\d{2,3})\s*/\s*(\d{2,3})`), func(v *Vitals, m []string) {
		v.Set(constants.VitalFastingGlucose, m[1])
		v.Set(constants.VitalRandomGlucose, m[2])
	}},
	{regexp.MustCompile(`(?i)\bBMI.*?([\d.]+)`), func(v *Vitals, m []string) {
		v.Set(constants.VitalBMI, m[1])
	}},
}

// ExtractVitals finds vital-sign values in normalized text. A key is present only
// when its pattern matched; values are kept as raw strings.
func ExtractVitals(text string) Vitals {
	var out Vitals
	for _, p := range vitalPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			p.store(&out, m)
		}
	}
	return out
}
