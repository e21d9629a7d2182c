package observable

import (
	"log/slog"
	"maps"
	"reflect"

	"github.com/randalmurphal/observable/pkg/observable/observability"
)

// Defaults for Definition fields left empty.
const (
	DefaultIDAttribute = "id"
	DefaultCIDPrefix   = "c"
)

// Definition describes a kind of model: its defaults, hooks and validator.
// Models keep a pointer to their Definition; do not modify it after the
// first model is created.
type Definition struct {
	// Name identifies the kind in logs, metrics and the Catalog.
	Name string

	// Defaults fill keys missing from constructor attributes.
	Defaults Attributes

	// DefaultsFunc, when set, is used instead of Defaults so each model gets
	// fresh values.
	DefaultsFunc func() Attributes

	// IDAttribute names the identity attribute. Default: "id"
	IDAttribute string

	// CIDPrefix prefixes client ids. Default: "c"
	CIDPrefix string

	// Preinitialize runs first in New, before the model has a client id.
	Preinitialize func(m *Model, attrs Attributes, opts *Options)

	// Initialize runs last in New.
	Initialize func(m *Model, attrs Attributes, opts *Options)

	// Parse converts constructor input when New is called with Parse().
	Parse func(attrs Attributes, opts *Options) Attributes

	// Validate checks a candidate attribute set when a call asks for
	// validation. A non-nil error rejects the call.
	Validate func(attrs Attributes, opts *Options) error

	// Equal decides whether an attribute changed. Default: DeepEqual
	Equal func(a, b any) bool

	// Logger receives debug logs for mutations and lifecycle. Default: nil (silent)
	Logger *slog.Logger

	// Metrics records mutation metrics. Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// Spans traces outermost mutations and destroys. Default: observability.NoopSpanManager{}
	Spans observability.SpanManager
}

// DeepEqual reports deep equality of two attribute values.
func DeepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// StrictEqual reports identity-style equality: == for comparable values.
// Values that cannot be compared (maps, slices, funcs) are never equal.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() || !av.Comparable() || !bv.Comparable() {
		return false
	}
	return a == b
}

var emptyDefinition = &Definition{}

func (d *Definition) kind() string {
	if d.Name == "" {
		return "model"
	}
	return d.Name
}

func (d *Definition) idAttribute() string {
	if d.IDAttribute == "" {
		return DefaultIDAttribute
	}
	return d.IDAttribute
}

func (d *Definition) cidPrefix() string {
	if d.CIDPrefix == "" {
		return DefaultCIDPrefix
	}
	return d.CIDPrefix
}

func (d *Definition) equal(a, b any) bool {
	if d.Equal != nil {
		return d.Equal(a, b)
	}
	return DeepEqual(a, b)
}

func (d *Definition) defaults() Attributes {
	if d.DefaultsFunc != nil {
		return d.DefaultsFunc()
	}
	return maps.Clone(d.Defaults)
}

func (d *Definition) metrics() observability.MetricsRecorder {
	if d.Metrics == nil {
		return observability.NoopMetrics{}
	}
	return d.Metrics
}

func (d *Definition) spans() observability.SpanManager {
	if d.Spans == nil {
		return observability.NoopSpanManager{}
	}
	return d.Spans
}
