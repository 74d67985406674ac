package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// DecodeJSON decodes one JSON document. Trailing data is an error.
func DecodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json: trailing data after document")
	}
	return v, nil
}

// DecodeYAML decodes one YAML document into the shape DecodeJSON produces,
// except that integers stay Go integers.
func DecodeYAML(b []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out, err := jsonvalue.Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return out, nil
}

// DecodeFile decodes b as YAML when name has a .yaml or .yml extension and as
// JSON otherwise.
func DecodeFile(name string, b []byte) (any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return DecodeYAML(b)
	}
	return DecodeJSON(b)
}
