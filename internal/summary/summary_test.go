package summary

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
)

func entry(vital string, status constants.Status) compare.Entry {
	return compare.Entry{Vital: vital, Status: status}
}

func TestGenerateObservations(t *testing.T) {
	tests := []struct {
		name    string
		entries []compare.Entry
		want    []string
	}{
		{"empty", nil, []string{}},
		{"all normal", []compare.Entry{entry("Heart Rate", constants.StatusNormal)}, []string{}},
		{
			"templates",
			[]compare.Entry{
				entry("Heart Rate", constants.StatusHigh),
				entry("Hemoglobin", constants.StatusLow),
				entry("Hiv", constants.StatusAbnormal),
			},
			[]string{
				"Heart Rate is higher than the normal range.",
				"Hemoglobin is lower than the normal range.",
				"Hiv result is abnormal.",
			},
		},
		{
			"duplicate vital observed once",
			[]compare.Entry{entry("Blood Sugar", constants.StatusHigh), entry("Blood Sugar", constants.StatusHigh)},
			[]string{"Blood Sugar is higher than the normal range."},
		},
		{
			"normal first occurrence blocks later abnormal",
			[]compare.Entry{entry("Blood Sugar", constants.StatusNormal), entry("Blood Sugar", constants.StatusHigh)},
			[]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateObservations(tt.entries); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateObservations() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateObservations_Cap(t *testing.T) {
	var entries []compare.Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, entry(fmt.Sprintf("Vital %d", i), constants.StatusHigh))
	}
	got := GenerateObservations(entries)
	if len(got) != MaxObservations {
		t.Fatalf("len = %d, want %d", len(got), MaxObservations)
	}
	if got[5] != "Vital 5 is higher than the normal range." {
		t.Errorf("last observation = %q", got[5])
	}
}

func TestGenerateConclusion(t *testing.T) {
	if got := GenerateConclusion(nil); got != ConclusionNoData {
		t.Errorf("empty = %q", got)
	}
	if !strings.Contains(ConclusionNoData, "No vital information") {
		t.Errorf("no-data text = %q", ConclusionNoData)
	}

	normal := []compare.Entry{entry("Heart Rate", constants.StatusNormal), entry("SpO₂", constants.StatusNormal)}
	if got := GenerateConclusion(normal); got != ConclusionAllNormal {
		t.Errorf("all normal = %q", got)
	}
	if !strings.Contains(ConclusionAllNormal, "within the normal range") {
		t.Errorf("all-normal text = %q", ConclusionAllNormal)
	}

	mixed := []compare.Entry{
		entry("Heart Rate", constants.StatusHigh),
		entry("Hemoglobin", constants.StatusLow),
		entry("Heart Rate", constants.StatusHigh),
		entry("SpO₂", constants.StatusNormal),
	}
	want := "The report shows abnormal values in the following parameters: Heart Rate, Hemoglobin. " +
		"These findings may require medical attention. Please consult a healthcare professional for proper evaluation."
	if got := GenerateConclusion(mixed); got != want {
		t.Errorf("abnormal = %q\nwant       %q", got, want)
	}
}
