package observable

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/observable/pkg/observable/observability"
)

// Ack reports the outcome of a persistence request. Only the first call
// has any effect. It must be called on the goroutine that owns the model.
type Ack func(resp any, err error)

// Persister removes a model from durable storage on Destroy.
// Implementations call ack exactly once, synchronously or later.
type Persister interface {
	Destroy(ctx context.Context, m *Model, ack Ack)
}

// Destroy stops every subscription the model made with ListenTo and fires
// "destroy".
//
// With a Persister, a model that is not new is also removed from storage,
// and "sync" follows a successful acknowledgment; a failure fires "error".
// With Wait, the teardown itself is deferred until the acknowledgment
// succeeds and does not happen on failure.
//
// Wait without a Persister returns ErrNoPersister after destroying the
// model immediately.
func (m *Model) Destroy(opts ...Option) error {
	o := newOptions(opts)
	ctx, span := m.def.spans().StartDestroySpan(o.ctx(), m.def.kind(), m.cid)

	if o.Wait && o.Persister == nil {
		observability.LogPersistError(m.logger, "destroy", ErrNoPersister)
		m.teardown(o)
		m.def.metrics().RecordDestroy(ctx, m.def.kind(), false, ErrNoPersister)
		m.def.spans().EndSpanWithError(span, ErrNoPersister)
		return ErrNoPersister
	}

	if !o.Wait {
		m.teardown(o)
	}

	if o.Persister == nil {
		m.def.metrics().RecordDestroy(ctx, m.def.kind(), false, nil)
		m.def.spans().EndSpanWithError(span, nil)
		return nil
	}

	var once sync.Once
	ack := func(resp any, err error) {
		once.Do(func() { m.acknowledge(ctx, span, o, resp, err) })
	}
	if m.IsNew() {
		ack(nil, nil)
		return nil
	}
	o.Persister.Destroy(ctx, m, ack)
	return nil
}

func (m *Model) teardown(o *Options) {
	m.StopListening(nil, "", nil)
	observability.LogDestroy(m.logger, o.Wait)
	m.Trigger(EventDestroy, m, m.collection, o)
}

func (m *Model) acknowledge(ctx context.Context, span trace.Span, o *Options, resp any, err error) {
	if err != nil {
		perr := &PersistError{Op: "destroy", CID: m.cid, Err: err}
		observability.LogPersistError(m.logger, "destroy", err)
		m.def.metrics().RecordDestroy(ctx, m.def.kind(), o.Wait, perr)
		m.def.spans().EndSpanWithError(span, perr)
		m.Trigger(EventError, m, perr, o)
		return
	}

	if o.Wait {
		m.teardown(o)
	}
	m.def.metrics().RecordDestroy(ctx, m.def.kind(), o.Wait, nil)
	m.def.spans().EndSpanWithError(span, nil)
	if !m.IsNew() {
		m.Trigger(EventSync, m, resp, o)
	}
}
