package summary

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/medreports/internal/compare"
)

const (
	ConclusionNoData = "No vital information could be evaluated from the report. " +
		"Please consult a healthcare professional for further review."
	ConclusionAllNormal = "All evaluated vital parameters are within the normal range. " +
		"Overall findings appear normal. Regular health monitoring is advised."
	conclusionAbnormalPrefix = "The report shows abnormal values in the following parameters: "
	conclusionAbnormalSuffix = ". These findings may require medical attention. " +
		"Please consult a healthcare professional for proper evaluation."
)

// GenerateConclusion produces the overall verdict for a set of comparison entries.
func GenerateConclusion(entries []compare.Entry) string {
	if len(entries) == 0 {
		return ConclusionNoData
	}

	names := map[string]struct{}{}
	for _, e := range entries {
		if e.Status.IsAbnormal() {
			names[e.Vital] = struct{}{}
		}
	}
	if len(names) == 0 {
		return ConclusionAllNormal
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	return conclusionAbnormalPrefix + strings.Join(sorted, ", ") + conclusionAbnormalSuffix
}
