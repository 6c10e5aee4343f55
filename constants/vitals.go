package constants

// Vital keys as produced by the extractors and looked up in the reference table.
const (
	VitalBloodPressure   = "blood_pressure"
	VitalHeartRate       = "heart_rate"
	VitalRespiratoryRate = "respiratory_rate"
	VitalBodyTemperature = "body_temperature"
	VitalSpO2            = "spo2"
	VitalFastingGlucose  = "fasting_glucose"
	VitalRandomGlucose   = "random_glucose"
	VitalBMI             = "bmi"

	VitalHemoglobin       = "hemoglobin"
	VitalPlateletCount    = "platelet_count"
	VitalBloodUrea        = "blood_urea"
	VitalSerumCreatinine  = "serum_creatinine"
	VitalTotalCholesterol = "total_cholesterol"

	VitalUrineSugar = "urine_sugar"
	VitalHIV        = "hiv"
	VitalHBsAg      = "hbsag"
	VitalVDRL       = "vdrl"
)

// VitalScanOrder is the order in which the vitals extractor looks for values.
// Keys outside this list sort after it.
var VitalScanOrder = []string{
	VitalBloodPressure,
	VitalHeartRate,
	VitalRespiratoryRate,
	VitalBodyTemperature,
	VitalSpO2,
	VitalFastingGlucose,
	VitalRandomGlucose,
	VitalBMI,
}

// Patient detail keys. Every key is always present in extracted details.
const (
	PatientID         = "patient_id"
	PatientAge        = "age"
	PatientGender     = "gender"
	PatientBloodGroup = "blood_group"
	PatientReportDate = "report_date"
)

// PatientFields lists the patient detail keys in extraction order.
var PatientFields = []string{
	PatientID,
	PatientAge,
	PatientGender,
	PatientBloodGroup,
	PatientReportDate,
}

// NotAvailable is stored for any patient field that could not be extracted.
const NotAvailable = "Not Available"
