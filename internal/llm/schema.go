package llm

// BuildEnvelopeJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the model as an output constraint and also use
// it locally to validate what comes back.
func BuildEnvelopeJSONSchema() map[string]any {
	fieldProp := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"key":   map[string]any{"type": "string", "minLength": 1},
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"key", "value"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extracted_fields": map[string]any{
				"type":  "array",
				"items": fieldProp,
			},
			"sample_ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
			"analysis_request": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
			"sample_analysis_mapping": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
		},
		// Every section is optional: a page may carry any subset.
		"required": []string{},
	}
}
