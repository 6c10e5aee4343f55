// Package pipeline runs reports through acquisition and analysis and records
// each stage on the stored report.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/ranges"
	"github.com/joseph-ayodele/medreports/internal/summary"
)

// Analysis is the analyzer output together with the normalized text it was built from.
type Analysis struct {
	Text string `json:"text"`
	entity.Analysis
}

// Analyzer runs stages 2 to 7 over raw text. It is safe for concurrent use.
type Analyzer struct {
	fields     extract.FieldExtractor
	comparator *compare.Comparator
}

// NewAnalyzer uses the rule based extractor and table, or the default table when nil.
func NewAnalyzer(table *ranges.Table) *Analyzer {
	return &Analyzer{fields: extract.Rules{}, comparator: compare.New(table)}
}

// WithFieldExtractor replaces the rule based extractor.
func (a *Analyzer) WithFieldExtractor(fe extract.FieldExtractor) *Analyzer {
	a.fields = fe
	return a
}

// Compare runs only the comparison stage, for vitals that did not come from text.
func (a *Analyzer) Compare(vitals extract.Vitals, gender string) []compare.Entry {
	return a.comparator.Compare(vitals, gender)
}

func (a *Analyzer) Analyze(raw string) Analysis {
	text := extract.Normalize(raw)
	fields := a.fields.ExtractFields(text)

	comparison := a.comparator.Compare(fields.Vitals, fields.Patient.Gender())
	return Analysis{
		Text: text,
		Analysis: entity.Analysis{
			PatientDetails:  fields.Patient,
			Vitals:          fields.Vitals,
			Comparison:      comparison,
			Observations:    summary.GenerateObservations(comparison),
			Conclusion:      summary.GenerateConclusion(comparison),
			BMI:             bmi(fields.Vitals),
			RespiratoryRate: vitalFloat(fields.Vitals, constants.VitalRespiratoryRate),
		},
	}
}

// AnalyzeFile acquires text from path and analyzes it without storing anything.
func (a *Analyzer) AnalyzeFile(ctx context.Context, tx extract.TextExtractor, path string) (Analysis, extract.TextExtractionResult, error) {
	res, err := tx.Extract(ctx, path)
	if err != nil {
		return Analysis{}, res, fmt.Errorf("extract text: %w", err)
	}
	return a.Analyze(res.Text), res, nil
}

func vitalFloat(v extract.Vitals, key string) *float64 {
	raw, ok := v.Get(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// bmi is the reported BMI rounded to one decimal.
func bmi(v extract.Vitals) *float64 {
	f := vitalFloat(v, constants.VitalBMI)
	if f == nil {
		return nil
	}
	r := math.Round(*f*10) / 10
	return &r
}
