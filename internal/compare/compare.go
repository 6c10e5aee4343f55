// Package compare classifies extracted vitals against reference ranges.
package compare

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/ranges"
)

var (
	reBPPair     = regexp.MustCompile(`(\d{2,3})\s*/\s*(\d{2,3})`)
	reSpO2Digits = regexp.MustCompile(`(\d{2,3})`)
	reDecimal    = regexp.MustCompile(`(\d+(\.\d+)?)`)
)

// Comparator checks vitals against one reference table. It holds no mutable
// state and may be shared between goroutines.
type Comparator struct {
	table *ranges.Table
}

// New returns a comparator over table, or over the default table when nil.
func New(table *ranges.Table) *Comparator {
	if table == nil {
		table = ranges.Default()
	}
	return &Comparator{table: table}
}

var defaultComparator = New(nil)

// CompareVitals compares against the default reference table.
func CompareVitals(vitals extract.Vitals, gender string) []Entry {
	return defaultComparator.Compare(vitals, gender)
}

// Compare returns one entry per vital that has both a value and a reference
// range, in the vitals' insertion order. Values that cannot be parsed are skipped.
func (c *Comparator) Compare(vitals extract.Vitals, gender string) []Entry {
	out := make([]Entry, 0, vitals.Len())
	for _, key := range vitals.Keys() {
		raw, _ := vitals.Get(key)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		r, ok := c.table.Lookup(key)
		if !ok {
			continue
		}
		if e, ok := compareOne(key, raw, r, gender); ok {
			out = append(out, e)
		}
	}
	return out
}

func compareOne(key, raw string, r ranges.Range, gender string) (Entry, bool) {
	switch rr := r.(type) {
	case ranges.BloodPressure:
		return compareBloodPressure(raw, rr)
	case ranges.Qualitative:
		return compareQualitative(key, raw, rr), true
	case ranges.GenderBased:
		return compareNumeric(key, raw, rr.For(gender))
	case ranges.Numeric:
		switch key {
		case constants.VitalSpO2:
			return compareSpO2(raw, rr.Bounds)
		case constants.VitalFastingGlucose, constants.VitalRandomGlucose:
			return compareGlucose(raw, rr.Bounds)
		default:
			return compareNumeric(key, raw, rr.Bounds)
		}
	default:
		return Entry{}, false
	}
}

func compareBloodPressure(raw string, r ranges.BloodPressure) (Entry, bool) {
	m := reBPPair.FindStringSubmatch(raw)
	if m == nil {
		return Entry{}, false
	}
	sys, err1 := strconv.Atoi(m[1])
	dia, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return Entry{}, false
	}
	status := constants.StatusNormal
	if float64(sys) > r.SystolicMax || float64(dia) > r.DiastolicMax {
		status = constants.StatusHigh
	}
	return Entry{
		Vital:        "Blood Pressure",
		PatientValue: TextValue(strconv.Itoa(sys) + "/" + strconv.Itoa(dia)),
		NormalRange:  "≤" + FormatNumber(r.SystolicMax) + " / ≤" + FormatNumber(r.DiastolicMax),
		Status:       status,
	}, true
}

func compareQualitative(key, raw string, r ranges.Qualitative) Entry {
	status := constants.StatusAbnormal
	if r.IsNormal(raw) {
		status = constants.StatusNormal
	}
	return Entry{
		Vital:        DisplayName(key),
		PatientValue: TextValue(raw),
		NormalRange:  strings.Join(r.NormalValues, ", "),
		Status:       status,
	}
}

func compareSpO2(raw string, b ranges.Bounds) (Entry, bool) {
	m := reSpO2Digits.FindStringSubmatch(raw)
	if m == nil {
		return Entry{}, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return Entry{}, false
	}
	normal := FormatBounds(b) + "%"
	if b.Min != nil && b.Max != nil {
		normal = FormatNumber(*b.Min) + "–" + FormatNumber(*b.Max) + "%"
	}
	return Entry{
		Vital:        "SpO₂",
		PatientValue: NumberValue(float64(v)),
		NormalRange:  normal,
		Status:       classify(float64(v), b),
	}, true
}

func compareGlucose(raw string, b ranges.Bounds) (Entry, bool) {
	m := reDecimal.FindStringSubmatch(raw)
	if m == nil {
		return Entry{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Vital:        "Blood Sugar",
		PatientValue: NumberValue(v),
		NormalRange:  FormatBounds(b),
		Status:       classify(v, b),
	}, true
}

func compareNumeric(key, raw string, b ranges.Bounds) (Entry, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Entry{}, false
	}
	return Entry{
		Vital:        DisplayName(key),
		PatientValue: NumberValue(v),
		NormalRange:  FormatBounds(b),
		Status:       classify(v, b),
	}, true
}

// classify checks the lower bound first; High is only considered when not Low.
func classify(v float64, b ranges.Bounds) constants.Status {
	if b.Min != nil && v < *b.Min {
		return constants.StatusLow
	}
	if b.Max != nil && v > *b.Max {
		return constants.StatusHigh
	}
	return constants.StatusNormal
}
