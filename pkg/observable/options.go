package observable

import "context"

// Options is the option set of one model call. The same *Options value is
// passed to every handler the call triggers, so handlers can inspect how
// the mutation was requested.
type Options struct {
	// Silent suppresses "change:<key>" and "change" events.
	Silent bool

	// Unset deletes the given keys instead of assigning them.
	Unset bool

	// Validate runs the Definition's validator before mutating.
	Validate bool

	// Parse runs the Definition's Parse hook over constructor attributes.
	Parse bool

	// Wait defers Destroy's teardown until the Persister acknowledges.
	Wait bool

	// Persister handles Destroy's persistence step.
	Persister Persister

	// Collection is stored by New and passed along with "destroy".
	Collection any

	// Context carries spans and metric attributes. Default: context.Background().
	Context context.Context

	// ValidationError is set when validation rejects the call.
	ValidationError error

	// Values carries caller data through to handlers.
	Values map[string]any
}

// Option configures a single model call.
type Option func(*Options)

func newOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Options) ctx() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}

// Value returns a caller value set with WithValue.
func (o *Options) Value(key string) any {
	return o.Values[key]
}

// Silent suppresses change events for the call.
func Silent() Option {
	return func(o *Options) { o.Silent = true }
}

// Validate runs the validator before mutating.
func Validate() Option {
	return func(o *Options) { o.Validate = true }
}

// Parse runs the Parse hook over constructor attributes.
func Parse() Option {
	return func(o *Options) { o.Parse = true }
}

// Wait makes Destroy wait for the persister before tearing down.
func Wait() Option {
	return func(o *Options) { o.Wait = true }
}

// WithPersister sets the persister used by Destroy.
func WithPersister(p Persister) Option {
	return func(o *Options) { o.Persister = p }
}

// WithCollection associates the model with a collection at construction.
func WithCollection(c any) Option {
	return func(o *Options) { o.Collection = c }
}

// WithContext sets the context used for spans and metrics.
func WithContext(ctx context.Context) Option {
	return func(o *Options) { o.Context = ctx }
}

// WithValue attaches caller data visible to handlers via Options.Value.
func WithValue(key string, value any) Option {
	return func(o *Options) {
		if o.Values == nil {
			o.Values = make(map[string]any)
		}
		o.Values[key] = value
	}
}
