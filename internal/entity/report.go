package entity

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/extract"
)

// Report is an uploaded medical report and everything derived from it.
type Report struct {
	ID               uuid.UUID              `json:"id"`
	OwnerID          string                 `json:"owner_id"`
	OriginalFilename string                 `json:"original_filename"`
	StoragePath      string                 `json:"-"`
	FileExt          string                 `json:"file_ext"`
	FileSizeKB       float64                `json:"file_size_kb"`
	ContentHash      string                 `json:"content_hash"`
	Status           constants.ReportStatus `json:"status"`
	ErrorMessage     string                 `json:"error_message,omitempty"`

	ExtractedText   string                 `json:"extracted_text,omitempty"`
	PatientDetails  extract.PatientDetails `json:"patient_details,omitempty"`
	Vitals          extract.Vitals         `json:"vitals"`
	Comparison      []compare.Entry        `json:"comparison_table,omitempty"`
	Observations    []string               `json:"observations,omitempty"`
	Conclusion      string                 `json:"conclusion,omitempty"`
	BMI             *float64               `json:"bmi,omitempty"`
	RespiratoryRate *float64               `json:"respiratory_rate,omitempty"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// SizeKB converts a byte count to kilobytes rounded to two decimals.
func SizeKB(bytes int64) float64 {
	return math.Round(float64(bytes)/1024*100) / 100
}

// Analysis is the output of stages 2 through 7 for one report text.
type Analysis struct {
	PatientDetails  extract.PatientDetails `json:"patient_details"`
	Vitals          extract.Vitals         `json:"vitals"`
	Comparison      []compare.Entry        `json:"comparison_table"`
	Observations    []string               `json:"observations"`
	Conclusion      string                 `json:"conclusion"`
	BMI             *float64               `json:"bmi"`
	RespiratoryRate *float64               `json:"respiratory_rate"`
}

// Apply copies the analysis onto r.
func (a Analysis) Apply(r *Report) {
	r.PatientDetails = a.PatientDetails
	r.Vitals = a.Vitals
	r.Comparison = a.Comparison
	r.Observations = a.Observations
	r.Conclusion = a.Conclusion
	r.BMI = a.BMI
	r.RespiratoryRate = a.RespiratoryRate
}
