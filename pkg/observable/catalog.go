package observable

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/randalmurphal/observable/pkg/observable/config"
	"github.com/randalmurphal/observable/pkg/observable/registry"
)

// Catalog holds Definitions by name. It is safe for concurrent use.
type Catalog struct {
	defs *registry.Registry[string, *Definition]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: registry.New[string, *Definition]()}
}

// Register adds or replaces a definition under its Name.
func (c *Catalog) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	c.defs.Register(def.Name, def)
	return nil
}

// Get returns the definition registered under name.
func (c *Catalog) Get(name string) (*Definition, error) {
	def, ok := c.defs.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return def, nil
}

// Names returns the registered names in registration order.
func (c *Catalog) Names() []string {
	return c.defs.Keys()
}

// New creates a model of the named kind.
func (c *Catalog) New(name string, attrs Attributes, opts ...Option) (*Model, error) {
	def, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return New(def, attrs, opts...), nil
}

// LoadFile loads a definition document and registers it.
func (c *Catalog) LoadFile(path string) (*Definition, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	if err := c.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadDir registers every .yaml, .yml and .json document in dir, in file
// name order. It stops at the first document that fails to load.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return fmt.Errorf("list definitions: %w", err)
	}
	slices.Sort(entries)
	for _, path := range entries {
		if !config.IsDocument(path) {
			continue
		}
		if _, err := c.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}
