package enrich

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pdfharvest/models"
)

// SchemaError reports an AI response that is missing or malformed
// against the configured key schema. It is a content problem, not a
// transient fault, so it is never retried.
type SchemaError struct {
	MissingKeys []string
	Reason      string
}

func (e *SchemaError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("schema validation failed: missing keys %s", strings.Join(e.MissingKeys, ", "))
	}
	return fmt.Sprintf("schema validation failed: %s", e.Reason)
}

// stripCodeFences removes a surrounding markdown code block, which chat
// models frequently wrap JSON payloads in.
func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// ParseMetadata decodes a raw inference response and validates it
// against the required key set. Every required key must be present and
// non-null; missing or uninterpretable keys yield a SchemaError.
func ParseMetadata(raw string, requiredKeys []string) (*models.PdfMetadataRecord, error) {
	cleaned := stripCodeFences(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("response is not valid JSON: %v", err)}
	}

	var missing []string
	for _, key := range requiredKeys {
		value, ok := payload[key]
		if !ok || value == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{MissingKeys: missing}
	}

	rec := &models.PdfMetadataRecord{
		Title:        asString(payload["title"]),
		Summary:      asString(payload["summary"]),
		Organization: asString(payload["organization"]),
		Country:      asString(payload["country"]),
		Language:     asString(payload["language"]),
	}

	tags, err := asStringSlice(payload["tags"])
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("tags: %v", err)}
	}
	rec.Tags = tags

	year, err := asYear(payload["year_published"])
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("year_published: %v", err)}
	}
	rec.YearPublished = year

	return rec, nil
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func asStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case string:
		// Some models return a comma-separated list instead of an array.
		var out []string
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array of strings, got %T", value)
	}
}

func asYear(value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case string:
		year, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return year, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}
