package observable

import (
	"fmt"
	"maps"
	"slices"
)

// Attributes is a set of named attribute values.
type Attributes map[string]any

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Keys returns the model's attribute names in sorted order.
func (m *Model) Keys() []string {
	return m.attributes.Keys()
}

// Values returns the model's attribute values in key order.
func (m *Model) Values() []any {
	keys := m.attributes.Keys()
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m.attributes[k]
	}
	return out
}

// Pick returns a copy of the named attributes that are present.
func (m *Model) Pick(keys ...string) Attributes {
	out := make(Attributes, len(keys))
	for _, k := range keys {
		if v, ok := m.attributes[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Omit returns a copy of the attributes without the named keys.
func (m *Model) Omit(keys ...string) Attributes {
	out := maps.Clone(m.attributes)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// IsEmpty reports whether the model has no attributes.
func (m *Model) IsEmpty() bool {
	return len(m.attributes) == 0
}

// Invert maps the string form of each value to its key. When values
// collide, the greatest key wins.
func (m *Model) Invert() map[string]string {
	out := make(map[string]string, len(m.attributes))
	for _, k := range m.attributes.Keys() {
		out[fmt.Sprint(m.attributes[k])] = k
	}
	return out
}

// Matches reports whether every entry of attrs is present on the model
// with an equal value.
func (m *Model) Matches(attrs Attributes) bool {
	return m.Satisfies(ByAttributeMatch(attrs))
}

// Satisfies reports whether the model's attributes pass it.
func (m *Model) Satisfies(it Iteratee) bool {
	return it.Predicate(m.def.equal)(m.attributes)
}
