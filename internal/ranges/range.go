// Package ranges holds the reference ranges vitals are compared against.
//
// A Range is one of four shapes: Numeric, BloodPressure, GenderBased or
// Qualitative. Tables are immutable once built and safe for concurrent use.
package ranges

import (
	"sort"
	"strings"
)

type Kind string

const (
	KindNumeric       Kind = "numeric"
	KindBloodPressure Kind = "blood_pressure"
	KindGenderBased   Kind = "gender_based"
	KindQualitative   Kind = "qualitative"
)

// Range is implemented only by the variants in this package.
type Range interface {
	Kind() Kind
	sealed()
}

// Bounds is an interval where either end may be missing.
type Bounds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type Numeric struct {
	Bounds
	Unit string
}

type BloodPressure struct {
	SystolicMax  float64
	DiastolicMax float64
	Unit         string
}

// GenderBased carries separate bounds per sex; Fallback applies when the
// patient's gender is unknown.
type GenderBased struct {
	Male     Bounds
	Female   Bounds
	Fallback Bounds
	Unit     string
}

type Qualitative struct {
	NormalValues []string
}

func (Numeric) Kind() Kind       { return KindNumeric }
func (BloodPressure) Kind() Kind { return KindBloodPressure }
func (GenderBased) Kind() Kind   { return KindGenderBased }
func (Qualitative) Kind() Kind   { return KindQualitative }

func (Numeric) sealed()       {}
func (BloodPressure) sealed() {}
func (GenderBased) sealed()   {}
func (Qualitative) sealed()   {}

// For picks the bounds matching gender (case-insensitive), else Fallback.
func (g GenderBased) For(gender string) Bounds {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male":
		return g.Male
	case "female":
		return g.Female
	default:
		return g.Fallback
	}
}

// IsNormal reports whether value is one of the normal values, ignoring case
// and surrounding whitespace.
func (q Qualitative) IsNormal(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, n := range q.NormalValues {
		if strings.ToLower(n) == v {
			return true
		}
	}
	return false
}

// Table maps vital keys to their reference range.
type Table struct {
	entries map[string]Range
}

// NewTable copies entries into a new table.
func NewTable(entries map[string]Range) *Table {
	t := &Table{entries: make(map[string]Range, len(entries))}
	for k, r := range entries {
		t.entries[k] = r
	}
	return t
}

func (t *Table) Lookup(key string) (Range, bool) {
	if t == nil {
		return nil, false
	}
	r, ok := t.entries[key]
	return r, ok
}

// Keys returns the vital keys in alphabetical order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Table) Len() int { return len(t.entries) }

// With returns a new table with overrides added on top of t.
func (t *Table) With(overrides map[string]Range) *Table {
	out := NewTable(t.entries)
	for k, r := range overrides {
		out.entries[k] = r
	}
	return out
}

func ptr(f float64) *float64 {
	return &f
}

// Between is a helper for building closed bounds.
func Between(min, max float64) Bounds {
	return Bounds{Min: ptr(min), Max: ptr(max)}
}

// AtMost is a helper for bounds with only an upper limit.
func AtMost(max float64) Bounds {
	return Bounds{Max: ptr(max)}
}

// AtLeast is a helper for bounds with only a lower limit.
func AtLeast(min float64) Bounds {
	return Bounds{Min: ptr(min)}
}
