// Package summary turns comparison entries into the narrative parts of a report.
package summary

import (
	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
)

// MaxObservations caps the number of observation sentences per report.
const MaxObservations = 6

// GenerateObservations writes one sentence per distinct abnormal vital, in input
// order. A vital name is only considered once, whatever its first status was.
func GenerateObservations(entries []compare.Entry) []string {
	out := make([]string, 0, MaxObservations)
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		if len(out) >= MaxObservations {
			break
		}
		if e.Vital == "" {
			continue
		}
		if _, dup := seen[e.Vital]; dup {
			continue
		}
		seen[e.Vital] = struct{}{}

		switch e.Status {
		case constants.StatusHigh:
			out = append(out, e.Vital+" is higher than the normal range.")
		case constants.StatusLow:
			out = append(out, e.Vital+" is lower than the normal range.")
		case constants.StatusAbnormal:
			out = append(out, e.Vital+" result is abnormal.")
		}
	}
	return out
}
