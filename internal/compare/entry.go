package compare

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/joseph-ayodele/medreports/constants"
)

// Entry is one vital's extracted value set against its reference range.
type Entry struct {
	Vital        string           `json:"vital"`
	PatientValue Value            `json:"patient_value"`
	NormalRange  string           `json:"normal_range"`
	Status       constants.Status `json:"status"`
}

// Value holds either a number or free text.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

func TextValue(s string) Value { return Value{Text: s} }

func NumberValue(f float64) Value { return Value{Number: f, IsNumber: true} }

func (v Value) String() string {
	if v.IsNumber {
		return FormatNumber(v.Number)
	}
	return v.Text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = NumberValue(f)
	return nil
}

// CountAbnormal returns how many entries are High, Low or Abnormal.
func CountAbnormal(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Status.IsAbnormal() {
			n++
		}
	}
	return n
}
