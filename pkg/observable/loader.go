package observable

import (
	"fmt"
	"maps"

	"github.com/randalmurphal/observable/pkg/observable/config"
	"github.com/randalmurphal/observable/pkg/observable/schema"
)

// LoadDefinition reads a definition document from a YAML or JSON file.
//
// Document layout:
//
//	name: user             # required
//	id_attribute: id       # optional, default "id"
//	cid_prefix: u          # optional, default "c"
//	equality: deep         # deep (default) or strict
//	defaults:              # optional
//	  role: guest
//	schema:                # optional JSON Schema; becomes the validator
//	  type: object
//	  required: [name]
//
// Property defaults in the schema are used for keys that "defaults" does
// not set.
func LoadDefinition(path string) (*Definition, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	def, err := ParseDefinition(cfg)
	if err != nil {
		return nil, fmt.Errorf("load definition %s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition builds a Definition from a decoded document.
func ParseDefinition(cfg config.Config) (*Definition, error) {
	name := cfg.String("name", "")
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	def := &Definition{
		Name:        name,
		IDAttribute: cfg.String("id_attribute", ""),
		CIDPrefix:   cfg.String("cid_prefix", ""),
	}

	switch eq := cfg.String("equality", "deep"); eq {
	case "deep":
		def.Equal = DeepEqual
	case "strict":
		def.Equal = StrictEqual
	default:
		return nil, fmt.Errorf("%w: unknown equality %q", ErrInvalidDefinition, eq)
	}

	defaults := Attributes{}
	if cfg.Has("schema") {
		raw := cfg.Map("schema")
		if raw == nil {
			return nil, fmt.Errorf("%w: schema must be a mapping", ErrInvalidDefinition)
		}
		s, err := schema.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		maps.Copy(defaults, s.Defaults())
		def.Validate = func(attrs Attributes, _ *Options) error {
			return s.Validate(attrs)
		}
	}

	if cfg.Has("defaults") {
		explicit := cfg.Map("defaults")
		if explicit == nil {
			return nil, fmt.Errorf("%w: defaults must be a mapping", ErrInvalidDefinition)
		}
		maps.Copy(defaults, explicit)
	}
	if len(defaults) > 0 {
		def.Defaults = defaults
	}
	return def, nil
}
