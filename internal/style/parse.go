package style

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseJSON reads a descriptor from a JSON object.
func ParseJSON(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse style JSON: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("failed to parse style JSON: not an object")
	}
	return normalize(d), nil
}

// ParseYAML reads a descriptor from a YAML mapping.
func ParseYAML(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("failed to parse style YAML: not a mapping")
	}
	return normalize(d), nil
}

// normalize rewrites parsed values into the shapes Decode produces: numbers
// become float64 and nested objects plain maps.
func normalize(d Descriptor) Descriptor {
	for k, v := range d {
		d[k] = normalizeValue(v)
	}
	return d
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case Descriptor:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// MarshalJSON serializes the descriptor form of s.
func MarshalJSON(s Style) ([]byte, error) {
	return json.Marshal(Decode(s))
}
