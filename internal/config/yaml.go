package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

var errEmptyConfig = errors.New("config is empty")

// configFormat picks the decoder from the file extension. Anything that is
// not .yaml/.yml is read as JSON.
func configFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// coerceToJSONBytes turns a YAML config into JSON so both formats go through
// the same strict decoder. An empty or comment-only document is an error:
// editors that truncate before writing would otherwise reload a config with
// no intervals.
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	format := configFormat(path)
	if format == "json" {
		return data, format, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, format, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, format, errEmptyConfig
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, format, fmt.Errorf("yaml: top level must be a mapping, got %s", nodeKind(root.Kind))
	}

	var v any
	if err := root.Decode(&v); err != nil {
		return nil, format, fmt.Errorf("yaml decode: %w", err)
	}
	j, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, format, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, format, nil
}

// stringKeys rewrites map keys as strings; YAML allows `1: x`, JSON does not.
func stringKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringKeys(x[i])
		}
		return x
	default:
		return in
	}
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("kind %d", k)
	}
}
