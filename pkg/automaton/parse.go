package automaton

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON or YAML automaton document.
// JSON is accepted because it is valid YAML. Unknown keys are rejected so a
// misspelled field fails loudly instead of being ignored.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse automaton: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to parse automaton: document is empty")
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode automaton: %w", err)
	}
	return &def, nil
}

// LoadFile reads and parses a definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read automaton %q: %w", path, err)
	}
	return Parse(data)
}
