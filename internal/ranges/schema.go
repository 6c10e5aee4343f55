package ranges

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileSchema describes the override file, draft 2020-12 subset.
func fileSchema() map[string]any {
	num := map[string]any{"type": "number"}
	bounds := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]any{"min": num, "max": num},
	}
	entry := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"kind"},
		"properties": map[string]any{
			"kind": map[string]any{
				"enum": []string{string(KindNumeric), string(KindBloodPressure), string(KindGenderBased), string(KindQualitative)},
			},
			"min":           num,
			"max":           num,
			"unit":          map[string]any{"type": "string"},
			"systolic_max":  map[string]any{"type": "number", "exclusiveMinimum": 0},
			"diastolic_max": map[string]any{"type": "number", "exclusiveMinimum": 0},
			"male":          bounds,
			"female":        bounds,
			"normal_values": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
		"allOf": []any{
			requireForKind(KindBloodPressure, "systolic_max", "diastolic_max"),
			requireForKind(KindGenderBased, "male", "female"),
			requireForKind(KindQualitative, "normal_values"),
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"ranges"},
		"properties": map[string]any{
			"ranges": map[string]any{
				"type":                 "object",
				"propertyNames":        map[string]any{"pattern": `^[a-z][a-z0-9_]*$`},
				"additionalProperties": entry,
			},
		},
	}
}

func requireForKind(k Kind, fields ...string) map[string]any {
	return map[string]any{
		"if":   map[string]any{"properties": map[string]any{"kind": map[string]any{"const": string(k)}}},
		"then": map[string]any{"required": fields},
	}
}

// validateAgainstSchema validates JSON "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ranges.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("ranges.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("ranges file does not match schema: %w", err)
	}
	return nil
}
