package constants

// ReportStatus is the processing state of a stored report.
type ReportStatus string

// Stable values (store these exact strings in DB).
const (
	ReportStatusQueued   ReportStatus = "QUEUED"   // stored, waiting for a worker
	ReportStatusRunning  ReportStatus = "RUNNING"  // in progress
	ReportStatusTextOK   ReportStatus = "TEXT_OK"  // stage 1 completed (text extracted)
	ReportStatusAnalyzed ReportStatus = "ANALYZED" // stages 2-7 completed
	ReportStatusFailed   ReportStatus = "FAILED"   // terminal failure
)

// Status is the per-vital outcome of comparing a value against its reference range.
type Status string

const (
	StatusNormal   Status = "Normal"
	StatusHigh     Status = "High"
	StatusLow      Status = "Low"
	StatusAbnormal Status = "Abnormal"
)

// IsAbnormal reports whether s should be surfaced as an observation.
func (s Status) IsAbnormal() bool {
	return s == StatusHigh || s == StatusLow || s == StatusAbnormal
}

// HealthStatus summarises a whole report for history listings.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "Unknown"
	HealthNormal    HealthStatus = "Normal"
	HealthAttention HealthStatus = "Attention"
	HealthCritical  HealthStatus = "Critical"
)
