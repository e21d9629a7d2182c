package observable

import (
	"maps"

	"github.com/randalmurphal/observable/pkg/observable/observability"
)

// validate runs the validator over the attributes as they would be after
// applying attrs. Without Validate in o, or without a validator, it passes.
func (m *Model) validate(attrs Attributes, o *Options) bool {
	if !o.Validate || m.def.Validate == nil {
		return true
	}
	candidate := maps.Clone(m.attributes)
	if candidate == nil {
		candidate = Attributes{}
	}
	for k, v := range attrs {
		if o.Unset {
			delete(candidate, k)
		} else {
			candidate[k] = v
		}
	}

	err := m.def.Validate(candidate, o)
	m.def.metrics().RecordValidation(o.ctx(), m.def.kind(), err)
	if err == nil {
		m.validationError = nil
		return true
	}

	verr := &ValidationError{Kind: m.def.Name, CID: m.cid, Err: err}
	m.validationError = verr
	o.ValidationError = verr
	observability.LogInvalid(m.logger, verr)
	m.Trigger(EventInvalid, m, verr, o)
	return false
}

// IsValid runs the validator against the current attributes. It records
// the result like Set does and fires "invalid" on failure.
func (m *Model) IsValid(opts ...Option) bool {
	o := newOptions(opts)
	o.Validate = true
	return m.validate(nil, o)
}

// HasChanged reports whether the last outermost mutation changed anything,
// or, given a key, whether it changed that key.
func (m *Model) HasChanged(key ...string) bool {
	if len(key) == 0 {
		return len(m.changed) > 0
	}
	_, ok := m.changed[key[0]]
	return ok
}

// ChangedAttributes returns a copy of the attributes changed by the last
// outermost mutation. Unset keys map to nil. ok is false when nothing
// changed.
func (m *Model) ChangedAttributes() (changed Attributes, ok bool) {
	if len(m.changed) == 0 {
		return nil, false
	}
	return maps.Clone(m.changed), true
}

// ChangedAttributesFrom returns the entries of candidate that differ from
// the model: from the attributes before the running mutation when called
// from a handler, otherwise from the current attributes. ok is false when
// nothing differs. The model is not modified.
func (m *Model) ChangedAttributesFrom(candidate Attributes) (changed Attributes, ok bool) {
	if candidate == nil {
		return m.ChangedAttributes()
	}
	base := m.attributes
	if m.changing {
		base = m.previous
	}
	changed = Attributes{}
	for k, v := range candidate {
		if m.def.equal(base[k], v) {
			continue
		}
		changed[k] = v
	}
	if len(changed) == 0 {
		return nil, false
	}
	return changed, true
}

// Previous returns key's value as of the start of the last outermost
// mutation.
func (m *Model) Previous(key string) any {
	if m.previous == nil {
		return nil
	}
	return m.previous[key]
}

// PreviousAttributes returns a copy of the attributes as of the start of
// the last outermost mutation.
func (m *Model) PreviousAttributes() Attributes {
	return maps.Clone(m.previous)
}
