package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/joseph-ayodele/medreports/constants"
)

// Vitals maps vital keys to raw extracted values and remembers insertion order,
// so comparison output follows the order in which values were found.
// The zero value is an empty set ready to use.
type Vitals struct {
	keys   []string
	values map[string]string
}

// Set stores value under key. Re-setting a key keeps its original position.
func (v *Vitals) Set(key, value string) {
	if v.values == nil {
		v.values = make(map[string]string)
	}
	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value
}

// Get returns the raw value for key.
func (v Vitals) Get(key string) (string, bool) {
	val, ok := v.values[key]
	return val, ok
}

func (v Vitals) Has(key string) bool {
	_, ok := v.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (v Vitals) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v Vitals) Len() int { return len(v.keys) }

// Map returns an unordered copy.
func (v Vitals) Map() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Merge adds every key of other that v does not have yet.
func (v *Vitals) Merge(other Vitals) {
	for _, k := range other.keys {
		if !v.Has(k) {
			v.Set(k, other.values[k])
		}
	}
}

// VitalsFromMap builds an ordered set from an unordered map: known vitals in scan
// order first, then the remaining keys alphabetically.
func VitalsFromMap(m map[string]string) Vitals {
	var out Vitals
	for _, k := range constants.VitalScanOrder {
		if val, ok := m[k]; ok {
			out.Set(k, val)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !out.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out.Set(k, m[k])
	}
	return out
}

// MarshalJSON writes an object whose members follow insertion order.
func (v Vitals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping document order. Numbers are kept in their
// literal form and null members are dropped.
func (v *Vitals) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*v = Vitals{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("vitals: expected object, got %v", tok)
	}

	var out Vitals
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("vitals: %q: %w", key, err)
		}
		switch x := raw.(type) {
		case nil:
		case string:
			out.Set(key, x)
		case json.Number:
			out.Set(key, x.String())
		default:
			return fmt.Errorf("vitals: %q must be a string or number", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*v = out
	return nil
}
