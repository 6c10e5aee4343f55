package extract

import (
	"context"
	"time"
)

// TextExtractor is stage 1: file -> raw text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE"
	Method     string // "pdf-text" | "pdf-ocr" | "pdf-mixed" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// FieldExtractor is stage 2: normalized text -> patient details and vitals.
type FieldExtractor interface {
	ExtractFields(text string) Fields
}

type Fields struct {
	Patient PatientDetails
	Vitals  Vitals
}

// Rules is the regex based FieldExtractor. Qualitative findings are merged
// after the numeric vitals and never overwrite them.
//
// The merge is on by default, so Fields.Vitals may carry urine_sugar, hiv,
// hbsag and vdrl on top of the eight numeric vitals. That scan also matches
// labels regardless of case ("HIV", "Hiv", "hiv"). Set SkipQualitative to get
// the numeric vitals only.
type Rules struct {
	// SkipQualitative disables the urine sugar / serology scan.
	SkipQualitative bool
}

func (r Rules) ExtractFields(text string) Fields {
	vitals := ExtractVitals(text)
	if !r.SkipQualitative {
		vitals.Merge(ExtractQualitative(text))
	}
	return Fields{
		Patient: ExtractPatientDetails(text),
		Vitals:  vitals,
	}
}
