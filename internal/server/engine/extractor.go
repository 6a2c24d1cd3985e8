package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Extractor turns a transcript into structured field values.
type Extractor interface {
	// ExtractFields maps the transcript onto the template's placeholder
	// fields.
	ExtractFields(ctx context.Context, transcript string, placeholders []string, templateText string) (map[string]string, error)

	// InferReplacements discovers the variable fields of a template that has
	// no placeholders, returning per-field original/new text pairs.
	InferReplacements(ctx context.Context, transcript, templateText string) (map[string]Replacement, error)
}

// decodeFieldMap parses a model's JSON reply into flat string fields. Nested
// values are flattened: string lists join with commas, anything else is
// re-encoded as JSON.
func decodeFieldMap(raw string) (map[string]string, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	return flattenFieldMap(parsed), nil
}

func flattenFieldMap(parsed map[string]any) map[string]string {
	fields := make(map[string]string, len(parsed))

	for k, v := range parsed {
		switch val := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = val
		case []any:
			parts := make([]string, 0, len(val))
			allStrings := true
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					allStrings = false
					break
				}
				parts = append(parts, s)
			}

			if allStrings {
				fields[k] = strings.Join(parts, ", ")
			} else {
				fields[k] = encodeJSON(val)
			}
		case map[string]any:
			fields[k] = encodeJSON(val)
		default:
			fields[k] = fmt.Sprint(val)
		}
	}

	return fields
}

func encodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(data)
}

// decodeReplacements parses a model's JSON reply into replacement pairs.
// Fields whose value is a bare string instead of an original/new object keep
// the string as the new value with no original to swap.
func decodeReplacements(raw string) (map[string]Replacement, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}

	replacements := make(map[string]Replacement, len(parsed))
	for field, v := range parsed {
		switch val := v.(type) {
		case map[string]any:
			rep := Replacement{}
			if s, ok := val["original"].(string); ok {
				rep.Original = s
			}
			if s, ok := val["new"].(string); ok {
				rep.New = s
			}
			replacements[field] = rep
		case string:
			replacements[field] = Replacement{New: val}
		}
	}

	return replacements, nil
}
