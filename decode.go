package formflow

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DecodeValuesJSON decodes a JSON object into Values. Numbers are kept as
// json.Number so numeric schemas decide how to interpret them.
func DecodeValuesJSON(data []byte) (Values, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("formflow: decode json values: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return Values(out), nil
}

// DecodeValuesYAML decodes a YAML mapping into Values.
func DecodeValuesYAML(data []byte) (Values, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("formflow: decode yaml values: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return Values(out), nil
}

// DecodeInto projects values onto a typed destination using its json tags.
// It is the statically typed counterpart to the string-keyed Values map.
func DecodeInto[T any](values Values) (T, error) {
	var out T
	raw, err := json.Marshal(map[string]any(values))
	if err != nil {
		return out, fmt.Errorf("formflow: encode values: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("formflow: project values: %w", err)
	}
	return out, nil
}
