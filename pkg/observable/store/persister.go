package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/observable/pkg/observable"
)

// Persister stores model snapshots in a Store. It implements
// observable.Persister, acknowledging synchronously.
type Persister struct {
	store  Store
	retry  RetryConfig
	logger *slog.Logger
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithRetry sets the retry policy for store calls. Default: DefaultRetry
func WithRetry(cfg RetryConfig) PersisterOption {
	return func(p *Persister) { p.retry = cfg }
}

// WithLogger sets the logger for store failures. Default: silent
func WithLogger(logger *slog.Logger) PersisterOption {
	return func(p *Persister) { p.logger = logger }
}

// NewPersister creates a Persister over s.
func NewPersister(s Store, opts ...PersisterOption) *Persister {
	p := &Persister{store: s, retry: DefaultRetry}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying store.
func (p *Persister) Store() Store { return p.store }

// Destroy removes the model's snapshot and acknowledges with its Info key.
func (p *Persister) Destroy(ctx context.Context, m *observable.Model, ack observable.Ack) {
	kind, id, err := key(m)
	if err != nil {
		ack(nil, err)
		return
	}
	err = withRetry(ctx, p.retry, "delete snapshot", func() error {
		return p.store.Delete(kind, id)
	})
	if err != nil {
		p.log("delete", kind, id, err)
		ack(nil, err)
		return
	}
	ack(Info{Kind: kind, ID: id}, nil)
}

// Save writes the model's JSON snapshot.
func (p *Persister) Save(ctx context.Context, m *observable.Model) error {
	kind, id, err := key(m)
	if err != nil {
		return err
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	err = withRetry(ctx, p.retry, "save snapshot", func() error {
		return p.store.Save(kind, id, data)
	})
	if err != nil {
		p.log("save", kind, id, err)
		return err
	}
	return nil
}

// Fetch loads the model's snapshot and applies it with SetAll, firing the
// usual change events. It returns false when validation rejects the data.
// Values that encode to the same JSON as the model's current values are left
// alone; other numbers arrive as int64 or float64 and arrays as []any.
func (p *Persister) Fetch(ctx context.Context, m *observable.Model, opts ...observable.Option) (bool, error) {
	kind, id, err := key(m)
	if err != nil {
		return false, err
	}
	var data []byte
	err = withRetry(ctx, p.retry, "load snapshot", func() error {
		var lerr error
		data, lerr = p.store.Load(kind, id)
		return lerr
	})
	if err != nil {
		p.log("load", kind, id, err)
		return false, err
	}
	attrs, err := decodeSnapshot(data, m.ToJSON())
	if err != nil {
		return false, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return m.SetAll(attrs, opts...), nil
}

func (p *Persister) log(op, kind, id string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("snapshot store failed",
		slog.String("operation", op),
		slog.String("kind", kind),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
}

func key(m *observable.Model) (kind, id string, err error) {
	if m.IsNew() {
		return "", "", fmt.Errorf("%w: %s", ErrNoID, m.CID())
	}
	return m.Kind(), fmt.Sprint(m.ID()), nil
}
