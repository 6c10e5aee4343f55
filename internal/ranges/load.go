package ranges

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Kind         Kind     `json:"kind"`
	Min          *float64 `json:"min"`
	Max          *float64 `json:"max"`
	Unit         string   `json:"unit"`
	SystolicMax  float64  `json:"systolic_max"`
	DiastolicMax float64  `json:"diastolic_max"`
	Male         *Bounds  `json:"male"`
	Female       *Bounds  `json:"female"`
	NormalValues []string `json:"normal_values"`
}

type fileDoc struct {
	Ranges map[string]fileEntry `json:"ranges"`
}

// LoadFile reads a YAML override file and returns the default table with the
// file's entries layered on top.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ranges file: %w", err)
	}
	overrides, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Default().With(overrides), nil
}

// Parse decodes and validates a YAML override document.
func Parse(data []byte) (map[string]Range, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	// Round-trip through JSON so the schema validator sees JSON types.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	if err := validateAgainstSchema(fileSchema(), js); err != nil {
		return nil, err
	}

	var parsed fileDoc
	if err := json.Unmarshal(js, &parsed); err != nil {
		return nil, fmt.Errorf("decode ranges: %w", err)
	}

	out := make(map[string]Range, len(parsed.Ranges))
	for key, e := range parsed.Ranges {
		r, err := e.toRange()
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", key, err)
		}
		out[key] = r
	}
	return out, nil
}

func (e fileEntry) toRange() (Range, error) {
	switch e.Kind {
	case KindNumeric:
		b := Bounds{Min: e.Min, Max: e.Max}
		if err := checkBounds(b); err != nil {
			return nil, err
		}
		return Numeric{Bounds: b, Unit: e.Unit}, nil
	case KindBloodPressure:
		return BloodPressure{SystolicMax: e.SystolicMax, DiastolicMax: e.DiastolicMax, Unit: e.Unit}, nil
	case KindGenderBased:
		g := GenderBased{Male: *e.Male, Female: *e.Female, Fallback: Bounds{Min: e.Min, Max: e.Max}, Unit: e.Unit}
		for _, b := range []Bounds{g.Male, g.Female, g.Fallback} {
			if err := checkBounds(b); err != nil {
				return nil, err
			}
		}
		return g, nil
	case KindQualitative:
		values := make([]string, 0, len(e.NormalValues))
		for _, v := range e.NormalValues {
			values = append(values, strings.ToLower(strings.TrimSpace(v)))
		}
		return Qualitative{NormalValues: values}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", e.Kind)
	}
}

func checkBounds(b Bounds) error {
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return fmt.Errorf("min %v is greater than max %v", *b.Min, *b.Max)
	}
	return nil
}
