package extract

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/medreports/constants"
)

func TestExtractVitals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{"blood pressure", "Blood Pressure 130/85", map[string]string{"blood_pressure": "130/85"}},
		{"glucose pair", "Blood Glucose 90/110", map[string]string{"fasting_glucose": "90", "random_glucose": "110"}},
		{"no labels", "Lorem ipsum 120/80 dolor", map[string]string{}},
		{"heart rate", "Heart Rate: 72 bpm", map[string]string{"heart_rate": "72"}},
		{"pulse", "Pulse - 88 beats/min", map[string]string{"heart_rate": "88"}},
		{"respiratory", "Respiratory Rate: 18 /min", map[string]string{"respiratory_rate": "18"}},
		{"temperature", "Body Temperature: 98.6 F", map[string]string{"body_temperature": "98.6"}},
		{"spo2", "SpO2 : 97 %", map[string]string{"spo2": "97"}},
		{"oxygen saturation", "Oxygen Saturation 99%", map[string]string{"spo2": "99"}},
		{"bmi", "BMI: 23.4 kg/m2", map[string]string{"bmi": "23.4"}},
		{"label on other line", "Blood Pressure\n120/80", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVitals(tt.text).Map()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVitals(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractVitals_ScanOrder(t *testing.T) {
	text := "BMI 22.1\nHeart Rate: 105 bpm\nBlood Pressure 140/95\nSpO2 96%"
	got := ExtractVitals(text).Keys()
	want := []string{constants.VitalBloodPressure, constants.VitalHeartRate, constants.VitalSpO2, constants.VitalBMI}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestExtractQualitative(t *testing.T) {
	text := "Urine Sugar: Absent\nHIV 1 & 2 : Non Reactive\nAustralia Antigen - Negative\nVDRL: Reactive"
	got := ExtractQualitative(text).Map()
	want := map[string]string{
		"urine_sugar": "absent",
		"hiv":         "non reactive",
		"hbsag":       "negative",
		"vdrl":        "reactive",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractQualitative() = %v, want %v", got, want)
	}
	if n := ExtractQualitative("Heart Rate 80").Len(); n != 0 {
		t.Errorf("expected no qualitative results, got %d", n)
	}
}

func TestRules_ExtractFields(t *testing.T) {
	text := "Heart Rate: 72 bpm\nhiv: NON REACTIVE\nVdrl - Reactive"

	all := Rules{}.ExtractFields(text).Vitals.Map()
	want := map[string]string{"heart_rate": "72", "hiv": "non reactive", "vdrl": "reactive"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("default rules = %v, want %v", all, want)
	}

	numeric := Rules{SkipQualitative: true}.ExtractFields(text).Vitals.Map()
	if !reflect.DeepEqual(numeric, map[string]string{"heart_rate": "72"}) {
		t.Errorf("numeric only = %v", numeric)
	}
}

func TestVitals_JSONKeepsOrder(t *testing.T) {
	var v Vitals
	v.Set("spo2", "97")
	v.Set("blood_pressure", "120/80")
	v.Set("spo2", "98")

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"spo2":"98","blood_pressure":"120/80"}` {
		t.Fatalf("marshal = %s", b)
	}

	var back Vitals
	if err := json.Unmarshal([]byte(`{"heart_rate": 110, "bmi": "N/A", "x": null}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), []string{"heart_rate", "bmi"}) {
		t.Errorf("Keys() = %v", back.Keys())
	}
	if hr, _ := back.Get("heart_rate"); hr != "110" {
		t.Errorf("heart_rate = %q, want 110", hr)
	}
	if err := json.Unmarshal([]byte(`{"a": [1]}`), &back); err == nil {
		t.Error("expected error for array member")
	}
}

func TestVitalsFromMap(t *testing.T) {
	v := VitalsFromMap(map[string]string{"zeta": "1", "hemoglobin": "11", "bmi": "20", "heart_rate": "70"})
	want := []string{"heart_rate", "bmi", "hemoglobin", "zeta"}
	if !reflect.DeepEqual(v.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", v.Keys(), want)
	}
}
