package teardown

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Metadata is the structured block the model emits ahead of the report.
// Every field is optional; the model may omit any of them.
type Metadata struct {
	Topic     string   `json:"topic,omitempty"`
	Audience  []string `json:"audience,omitempty"`
	ViralTags []string `json:"viral_tags,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	// Raw is the decoded object, including keys not mapped above.
	Raw map[string]any `json:"-"`
}

// decodeMetadata decodes payload as a JSON object. Anything else, including
// valid JSON that is not an object, is rejected.
func decodeMetadata(payload string) (*Metadata, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload[0] != '{' || !gjson.Valid(payload) {
		return nil, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil || raw == nil {
		return nil, false
	}

	return newMetadata(raw), true
}

// newMetadata maps the known keys leniently: a mistyped field is dropped or
// coerced instead of failing the whole object.
func newMetadata(raw map[string]any) *Metadata {
	md := &Metadata{Raw: raw}
	if topic, ok := raw["topic"].(string); ok {
		md.Topic = topic
	}
	md.Audience = stringList(raw["audience"])
	md.ViralTags = stringList(raw["viral_tags"])
	md.Tags = stringList(raw["tags"])
	return md
}

func stringList(v any) []string {
	switch vv := v.(type) {
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// AcceptFunc decides whether a decoded candidate found by the brace scan is
// really the metadata object and not some unrelated JSON in the prose.
type AcceptFunc func(fields map[string]any) bool

// RequireAnyField accepts a candidate when at least one of the named fields
// is present and truthy. Arrays and objects count as truthy even when empty.
func RequireAnyField(names ...string) AcceptFunc {
	return func(fields map[string]any) bool {
		for _, name := range names {
			if truthy(fields[name]) {
				return true
			}
		}
		return false
	}
}

func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case float64:
		return vv != 0
	case string:
		return vv != ""
	default:
		return true
	}
}
