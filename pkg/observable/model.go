package observable

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/randalmurphal/observable/pkg/observable/event"
	"github.com/randalmurphal/observable/pkg/observable/observability"
)

// Event names emitted by Model.
const (
	EventChange  = "change"
	EventInvalid = "invalid"
	EventDestroy = "destroy"
	EventSync    = "sync"
	EventError   = "error"
)

// ChangeEvent returns the per-attribute event name for key.
func ChangeEvent(key string) string {
	return EventChange + ":" + key
}

var cidCounter atomic.Uint64

// Model is an attribute map that reports its own changes through an
// embedded event channel.
//
// Events and their handler arguments:
//
//	"change:<key>"  (*Model, value any, *Options)
//	"change"        (*Model, *Options)
//	"invalid"       (*Model, *ValidationError, *Options)
//	"destroy"       (*Model, collection any, *Options)
//	"sync"          (*Model, response any, *Options)
//	"error"         (*Model, error, *Options)
//
// A Model is not safe for concurrent use.
type Model struct {
	*event.Channel

	def        *Definition
	cid        string
	id         any
	collection any

	attributes Attributes
	changed    Attributes
	previous   Attributes

	changing        bool
	pending         *Options
	validationError error

	logger *slog.Logger
}

// New creates a model of the given kind. Defaults from def fill keys that
// attrs does not provide. A nil def describes a plain model.
func New(def *Definition, attrs Attributes, opts ...Option) *Model {
	if def == nil {
		def = emptyDefinition
	}
	o := newOptions(opts)

	m := &Model{
		def:        def,
		attributes: Attributes{},
		changed:    Attributes{},
	}
	m.Channel = event.New(m, event.WithLogger(def.Logger), event.WithMetrics(def.Metrics))

	if def.Preinitialize != nil {
		def.Preinitialize(m, attrs, o)
	}
	m.cid = def.cidPrefix() + strconv.FormatUint(cidCounter.Add(1), 10)
	m.logger = observability.EnrichLogger(def.Logger, def.kind(), m.cid)
	if o.Collection != nil {
		m.collection = o.Collection
	}

	initial := attrs
	if o.Parse && def.Parse != nil {
		initial = def.Parse(attrs, o)
	}
	defaults := def.defaults()
	if defaults == nil {
		defaults = Attributes{}
	}
	merged := maps.Clone(defaults)
	maps.Copy(merged, initial)

	// A new model's baseline is its defaults: changed holds the caller
	// values that differ from them. A rejected construction holds nothing
	// and reports no changes.
	m.changed = Attributes{}
	if m.set(merged.Keys(), merged, o) {
		m.previous = defaults
		for k, v := range initial {
			if !def.equal(defaults[k], v) {
				m.changed[k] = v
			}
		}
	}

	if def.Initialize != nil {
		def.Initialize(m, attrs, o)
	}
	return m
}

// Definition returns the model's kind.
func (m *Model) Definition() *Definition { return m.def }

// Kind returns the Definition name, or "model" for an unnamed Definition.
func (m *Model) Kind() string { return m.def.kind() }

// CID returns the client id, unique within the process.
func (m *Model) CID() string { return m.cid }

// ID returns the value of the identity attribute as of the last mutation.
func (m *Model) ID() any { return m.id }

// Collection returns the collection given to New, if any.
func (m *Model) Collection() any { return m.collection }

// ValidationError returns the result of the last validation run, or nil.
func (m *Model) ValidationError() error { return m.validationError }

// Get returns the value of key, or nil if absent.
func (m *Model) Get(key string) any {
	return m.attributes[key]
}

// Lookup returns the value of key and whether it is present.
func (m *Model) Lookup(key string) (any, bool) {
	v, ok := m.attributes[key]
	return v, ok
}

// Has reports whether key holds a non-nil value.
func (m *Model) Has(key string) bool {
	return m.attributes[key] != nil
}

// Escape returns the HTML-escaped string form of key's value.
func (m *Model) Escape(key string) string {
	v := m.attributes[key]
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return html.EscapeString(s)
}

// ToJSON returns a shallow copy of the attributes.
func (m *Model) ToJSON() Attributes {
	return maps.Clone(m.attributes)
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.attributes)
}

// IsNew reports whether the model has no identity attribute.
func (m *Model) IsNew() bool {
	return !m.Has(m.def.idAttribute())
}

// Clone creates a model of the same kind from a copy of the attributes.
func (m *Model) Clone() *Model {
	return New(m.def, maps.Clone(m.attributes))
}

// Set assigns one attribute. It returns false when validation rejects the
// update, in which case nothing changes.
func (m *Model) Set(key string, value any, opts ...Option) bool {
	return m.set([]string{key}, Attributes{key: value}, newOptions(opts))
}

// SetAll assigns several attributes in one mutation. Keys are applied and
// reported in sorted order.
func (m *Model) SetAll(attrs Attributes, opts ...Option) bool {
	if attrs == nil {
		return true
	}
	return m.set(attrs.Keys(), attrs, newOptions(opts))
}

// Unset removes key, firing "change:<key>" with a nil value if it was set.
func (m *Model) Unset(key string, opts ...Option) bool {
	o := newOptions(opts)
	o.Unset = true
	return m.set([]string{key}, Attributes{key: nil}, o)
}

// Clear removes every attribute in one mutation.
func (m *Model) Clear(opts ...Option) bool {
	attrs := make(Attributes, len(m.attributes))
	for k := range m.attributes {
		attrs[k] = nil
	}
	o := newOptions(opts)
	o.Unset = true
	return m.set(attrs.Keys(), attrs, o)
}

// set applies attrs in key order. Calls made from handlers while another
// set is running only record a pending "change"; the outermost call fires
// "change" until no handler has made a further change.
func (m *Model) set(keys []string, attrs Attributes, o *Options) bool {
	if !m.validate(attrs, o) {
		return false
	}

	nested := m.changing
	m.changing = true

	var completed bool
	var aggregates int
	if !nested {
		m.previous = maps.Clone(m.attributes)
		m.changed = Attributes{}
		finish := m.track(o)
		defer func() { finish(completed, aggregates) }()
	}

	var changes []string
	for _, k := range keys {
		v := attrs[k]
		if !m.def.equal(m.attributes[k], v) {
			changes = append(changes, k)
		}
		if !m.def.equal(m.previous[k], v) {
			m.changed[k] = v
		} else {
			delete(m.changed, k)
		}
		if o.Unset {
			delete(m.attributes, k)
		} else {
			m.attributes[k] = v
		}
	}

	if idAttr := m.def.idAttribute(); slices.Contains(keys, idAttr) {
		m.id = m.attributes[idAttr]
	}

	if !o.Silent {
		if len(changes) > 0 {
			m.pending = o
		}
		for _, k := range changes {
			m.Trigger(ChangeEvent(k), m, m.attributes[k], o)
		}
	}

	if nested {
		return true
	}
	if !o.Silent {
		for m.pending != nil {
			p := m.pending
			m.pending = nil
			aggregates++
			m.Trigger(EventChange, m, p)
		}
	}
	completed = true
	return true
}

// track instruments an outermost mutation. The returned func also resets
// the reentrancy state, so a panicking handler does not wedge the model.
func (m *Model) track(o *Options) func(completed bool, aggregates int) {
	ctx, span := m.def.spans().StartMutationSpan(o.ctx(), m.def.kind(), m.cid)
	start := time.Now()

	return func(completed bool, aggregates int) {
		m.pending = nil
		m.changing = false

		if !completed {
			m.def.spans().EndSpanWithError(span, errMutationAborted)
			return
		}
		elapsed := time.Since(start)
		changed := m.changed.Keys()
		m.def.metrics().RecordMutation(ctx, m.def.kind(), len(changed), elapsed)
		observability.LogMutation(m.logger, changed, aggregates, float64(elapsed.Microseconds())/1000)
		m.def.spans().EndSpanWithError(span, nil)
	}
}
