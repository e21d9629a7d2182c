// Package schema validates model attributes against JSON Schema documents.
//
// A definition document may carry a "schema" section; LoadDefinition
// compiles it and uses Validate as the model's validator, and property
// "default" values become model defaults.
//
//	s, err := schema.Compile(map[string]any{
//	    "type":     "object",
//	    "required": []any{"name"},
//	    "properties": map[string]any{
//	        "name": map[string]any{"type": "string", "minLength": 1},
//	        "role": map[string]any{"type": "string", "default": "guest"},
//	    },
//	})
//	err = s.Validate(map[string]any{"name": ""}) // *ValidationError
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON Schema together with its source document.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Compile compiles a raw schema document. A nil document yields a nil
// Schema, which accepts everything.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	doc, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("attributes.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := c.Compile("attributes.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the source document.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks attrs against the schema. Attribute values may be any
// JSON-encodable Go values; they are compared in their JSON form.
func (s *Schema) Validate(attrs map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	doc, err := normalize(attrs)
	if err != nil {
		return &ValidationError{Err: err}
	}
	if err := s.compiled.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Defaults returns the "default" value of each top-level property.
func (s *Schema) Defaults() map[string]any {
	props, _ := s.Raw()["properties"].(map[string]any)
	out := make(map[string]any)
	for name, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := prop["default"]; ok {
			out[name] = def
		}
	}
	return out
}

// Required returns the top-level required property names, sorted.
func (s *Schema) Required() []string {
	var out []string
	switch req := s.Raw()["required"].(type) {
	case []string:
		out = slices.Clone(req)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
	}
	slices.Sort(out)
	return out
}

// normalize round-trips v through JSON into the value shapes the validator
// expects.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// ValidationError wraps a JSON Schema validation failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
