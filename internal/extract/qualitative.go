package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/medreports/constants"
)

var qualitativeValues = []string{"positive", "negative", "present", "absent", "non reactive", "reactive"}

type qualitativeTest struct {
	key      string
	patterns []*regexp.Regexp
}

var qualitativeTests = []qualitativeTest{
	newQualitativeTest(constants.VitalUrineSugar, "urine sugar", "sugar"),
	newQualitativeTest(constants.VitalHIV, "hiv"),
	newQualitativeTest(constants.VitalHBsAg, "hbsag", "australia antigen"),
	newQualitativeTest(constants.VitalVDRL, "vdrl"),
}

func newQualitativeTest(key string, keywords ...string) qualitativeTest {
	values := strings.Join(qualitativeValues, "|")
	t := qualitativeTest{key: key}
	for _, kw := range keywords {
		t.patterns = append(t.patterns, regexp.MustCompile(regexp.QuoteMeta(kw)+`[^a-z]{0,20}(`+values+`)`))
	}
	return t
}

// ExtractQualitative finds categorical test results such as "HIV: Non Reactive".
// Values are returned lower-cased.
func ExtractQualitative(text string) Vitals {
	var out Vitals
	lower := strings.ToLower(text)
	for _, t := range qualitativeTests {
		for _, re := range t.patterns {
			if m := re.FindStringSubmatch(lower); m != nil {
				out.Set(t.key, m[1])
				break
			}
		}
	}
	return out
}
