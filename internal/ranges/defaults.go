package ranges

import "github.com/joseph-ayodele/medreports/constants"

var defaultTable = NewTable(map[string]Range{
	constants.VitalBloodPressure:   BloodPressure{SystolicMax: 120, DiastolicMax: 80, Unit: "mmHg"},
	constants.VitalHeartRate:       Numeric{Bounds: Between(60, 100), Unit: "bpm"},
	constants.VitalRespiratoryRate: Numeric{Bounds: Between(12, 20), Unit: "breaths/min"},
	constants.VitalBodyTemperature: Numeric{Bounds: Between(36.1, 37.2), Unit: "°C"},
	constants.VitalSpO2:            Numeric{Bounds: Between(95, 100), Unit: "%"},
	constants.VitalFastingGlucose:  Numeric{Bounds: Between(70, 99), Unit: "mg/dL"},
	constants.VitalRandomGlucose:   Numeric{Bounds: Between(0, 140), Unit: "mg/dL"},
	constants.VitalHemoglobin: GenderBased{
		Male:     Between(13, 17),
		Female:   Between(12, 15),
		Fallback: Between(12, 17),
		Unit:     "g/dL",
	},
	constants.VitalPlateletCount:    Numeric{Bounds: Between(150000, 450000), Unit: "/µL"},
	constants.VitalBloodUrea:        Numeric{Bounds: Between(15, 40), Unit: "mg/dL"},
	constants.VitalSerumCreatinine:  Numeric{Bounds: Between(0.6, 1.3), Unit: "mg/dL"},
	constants.VitalTotalCholesterol: Numeric{Bounds: AtMost(200), Unit: "mg/dL"},
	constants.VitalBMI:              Numeric{Bounds: Between(18.5, 24.9), Unit: "kg/m²"},

	constants.VitalUrineSugar: Qualitative{NormalValues: []string{"absent", "negative"}},
	constants.VitalHIV:        Qualitative{NormalValues: []string{"non reactive", "negative"}},
	constants.VitalHBsAg:      Qualitative{NormalValues: []string{"non reactive", "negative"}},
	constants.VitalVDRL:       Qualitative{NormalValues: []string{"non reactive", "negative"}},
})

// Default returns the built-in reference table. Callers must not mutate it.
func Default() *Table {
	return defaultTable
}
