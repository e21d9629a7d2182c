package event

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/observable/pkg/observable/observability"
	"github.com/randalmurphal/observable/pkg/observable/registry"
)

// All is the wildcard event name. Its handlers receive every triggered
// event, with the event name prepended to the arguments.
const All = "all"

// Source is anything a Channel can listen to. Implementations must be
// comparable (typically pointers) because sources are used as index keys.
type Source interface {
	Subscribe(names string, cb *Callback, context any) error
	Unsubscribe(names string, cb *Callback, context any)
}

// handler is one registration under one event name.
type handler struct {
	callback  *Callback
	context   any // as passed to On
	receiver  any // context, or the channel owner
	listening *Listening
}

// Channel holds the named handlers of one object and dispatches to them.
// The zero value is not usable; create channels with New.
type Channel struct {
	owner    any
	handlers map[string][]*handler

	listenID    string
	listeningTo *registry.Registry[Source, *Listening]
	listeners   *registry.Registry[string, *Listening]

	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger for subscription bookkeeping.
// Default: nil (silent)
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithMetrics records dispatch metrics.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Channel) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a channel. owner is the default invocation context for
// handlers registered without one; a nil owner means the channel itself.
func New(owner any, opts ...Option) *Channel {
	c := &Channel{
		owner:   owner,
		metrics: observability.NoopMetrics{},
	}
	if owner == nil {
		c.owner = c
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Source = (*Channel)(nil)

// channelOf returns the Channel behind a source that exposes one.
func channelOf(source Source) *Channel {
	if s, ok := source.(interface{ EventChannel() *Channel }); ok {
		return s.EventChannel()
	}
	return nil
}

// EventChannel returns c. Types embedding *Channel inherit it, which makes
// them counted sources for ListenTo.
func (c *Channel) EventChannel() *Channel { return c }

// Owner returns the default invocation context.
func (c *Channel) Owner() any { return c.owner }

// ListenID returns the channel's listen id, assigning one on first use.
func (c *Channel) ListenID() string {
	if c.listenID == "" {
		c.listenID = uuid.NewString()
	}
	return c.listenID
}

// Subscribe implements Source.
func (c *Channel) Subscribe(names string, cb *Callback, context any) error {
	c.On(names, cb, context)
	return nil
}

// Unsubscribe implements Source.
func (c *Channel) Unsubscribe(names string, cb *Callback, context any) {
	c.Off(names, cb, context)
}

// binding is one (names, callback) pair from a single or mapped call.
type binding struct {
	names string
	cb    *Callback
}

// sortedBindings turns a name map into bindings in sorted name order.
func sortedBindings(m map[string]*Callback) []binding {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]binding, 0, len(names))
	for _, name := range names {
		out = append(out, binding{names: name, cb: m[name]})
	}
	return out
}

// On registers cb for each name in names. A nil context makes the channel
// owner the invocation context. A nil cb registers nothing.
func (c *Channel) On(names string, cb *Callback, context any) *Channel {
	c.on(names, cb, context, nil)
	return c
}

// OnMap registers one callback per name.
func (c *Channel) OnMap(callbacks map[string]*Callback, context any) *Channel {
	for _, b := range sortedBindings(callbacks) {
		c.on(b.names, b.cb, context, nil)
	}
	return c
}

// on registers handlers, linking each to listening when the registration
// comes from a counted ListenTo.
func (c *Channel) on(names string, cb *Callback, context any, listening *Listening) {
	if cb == nil {
		return
	}
	receiver := context
	if receiver == nil {
		receiver = c.owner
	}
	for _, name := range strings.Fields(names) {
		if c.handlers == nil {
			c.handlers = make(map[string][]*handler)
		}
		c.handlers[name] = append(c.handlers[name], &handler{
			callback:  cb,
			context:   context,
			receiver:  receiver,
			listening: listening,
		})
		if listening != nil {
			listening.count++
			c.listenerIndex().Register(listening.id, listening)
		}
	}
}

// Once registers cb to run at most once per name, then remove itself.
// Off with cb also removes the pending wrappers.
func (c *Channel) Once(names string, cb *Callback, context any) *Channel {
	if cb == nil {
		return c
	}
	for _, name := range strings.Fields(names) {
		c.on(name, once(name, cb, c.offOnce), context, nil)
	}
	return c
}

// OnceMap is the map form of Once.
func (c *Channel) OnceMap(callbacks map[string]*Callback, context any) *Channel {
	for _, b := range sortedBindings(callbacks) {
		c.Once(b.names, b.cb, context)
	}
	return c
}

func (c *Channel) offOnce(name string, w *Callback) {
	c.Off(name, w, nil)
}

// Off removes handlers. A handler is removed when cb is nil or is its
// callback (or the original of a once-wrapper), and context is nil or
// equals the context it was registered with. Empty names means every
// registered name.
//
// With all three filters empty, Off drops every handler and also releases
// every Listening in which another channel listens to this one.
func (c *Channel) Off(names string, cb *Callback, context any) *Channel {
	if c.handlers == nil && c.listeners == nil {
		return c
	}

	if names == "" && cb == nil && context == nil {
		if c.listeners != nil {
			for _, l := range c.listeners.Values() {
				l.cleanup()
			}
		}
		c.handlers = nil
		return c
	}

	var targets []string
	if names == "" {
		targets = c.names()
	} else {
		targets = strings.Fields(names)
	}

	var released []*Listening
	for _, name := range targets {
		handlers, ok := c.handlers[name]
		if !ok {
			continue
		}

		// Dispatch may be iterating the old slice, so never edit it in place.
		remaining := make([]*handler, 0, len(handlers))
		for _, h := range handlers {
			if (cb != nil && !h.callback.matches(cb)) || (context != nil && !sameContext(context, h.context)) {
				remaining = append(remaining, h)
				continue
			}
			if h.listening != nil {
				released = append(released, h.listening)
			}
		}

		if len(remaining) > 0 {
			c.handlers[name] = remaining
		} else {
			delete(c.handlers, name)
		}
	}
	if len(c.handlers) == 0 {
		c.handlers = nil
	}

	for _, l := range released {
		l.release()
	}
	return c
}

// sameContext compares two contexts without panicking on values that
// cannot be compared; such values never match.
func sameContext(filter, registered any) bool {
	if registered == nil {
		return false
	}
	fv, rv := reflect.ValueOf(filter), reflect.ValueOf(registered)
	if fv.Type() != rv.Type() || !fv.Comparable() || !rv.Comparable() {
		return false
	}
	return filter == registered
}

// names returns the registered event names, sorted.
func (c *Channel) names() []string {
	out := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Trigger dispatches each name in names: first to the handlers registered
// for it, then to the wildcard handlers with the name prepended to args.
func (c *Channel) Trigger(names string, args ...any) *Channel {
	if c.handlers == nil {
		return c
	}
	for _, name := range strings.Fields(names) {
		c.dispatch(name, args)
	}
	return c
}

func (c *Channel) dispatch(name string, args []any) {
	named := c.handlers[name]
	all := slices.Clone(c.handlers[All])

	c.metrics.RecordTrigger(context.Background(), name, len(named)+len(all))

	for _, h := range named {
		h.callback.call(h.receiver, args)
	}
	if len(all) == 0 {
		return
	}
	withName := make([]any, 0, len(args)+1)
	withName = append(withName, name)
	withName = append(withName, args...)
	for _, h := range all {
		h.callback.call(h.receiver, withName)
	}
}

// ListenTo registers cb on source on behalf of c, with c's owner as the
// invocation context, and tracks the subscription so StopListening can undo
// it. A source that rejects the subscription leaves c unchanged and the
// failure is returned as a *SubscriptionError.
func (c *Channel) ListenTo(source Source, names string, cb *Callback) error {
	return c.listenTo(source, []binding{{names: names, cb: cb}})
}

// ListenToMap is the map form of ListenTo.
func (c *Channel) ListenToMap(source Source, callbacks map[string]*Callback) error {
	return c.listenTo(source, sortedBindings(callbacks))
}

// ListenToOnce is ListenTo where each name's handler stops listening after
// its first invocation.
func (c *Channel) ListenToOnce(source Source, names string, cb *Callback) error {
	return c.listenTo(source, c.onceBindings(source, names, cb))
}

// ListenToOnceMap is the map form of ListenToOnce.
func (c *Channel) ListenToOnceMap(source Source, callbacks map[string]*Callback) error {
	var bindings []binding
	for _, b := range sortedBindings(callbacks) {
		bindings = append(bindings, c.onceBindings(source, b.names, b.cb)...)
	}
	return c.listenTo(source, bindings)
}

func (c *Channel) onceBindings(source Source, names string, cb *Callback) []binding {
	if cb == nil {
		return nil
	}
	var out []binding
	for _, name := range strings.Fields(names) {
		w := once(name, cb, func(name string, w *Callback) {
			c.StopListening(source, name, w)
		})
		out = append(out, binding{names: name, cb: w})
	}
	return out
}

func (c *Channel) listenTo(source Source, bindings []binding) error {
	if source == nil {
		return nil
	}
	l, created := c.listeningIndex().GetOrCreate(keyOf(source), func() *Listening {
		return newListening(c, source)
	})

	if l.target != nil {
		for _, b := range bindings {
			l.target.on(b.names, b.cb, c.owner, l)
		}
	} else if err := c.subscribeForeign(l, created, bindings); err != nil {
		return err
	}

	if l.empty() {
		l.cleanup()
	}
	return nil
}

// subscribeForeign subscribes bindings on an interop source and mirrors them
// in the shadow channel. On error or panic, subscriptions made by this call
// are undone and a Listening created by it is removed.
func (c *Channel) subscribeForeign(l *Listening, created bool, bindings []binding) error {
	var done []binding
	rollback := func() {
		for _, b := range slices.Backward(done) {
			l.source.Unsubscribe(b.names, b.cb, c.owner)
		}
		if created {
			c.listeningTo.Delete(l.key())
		}
	}

	panicking := true
	defer func() {
		if panicking {
			rollback()
		}
	}()

	for _, b := range bindings {
		if b.cb == nil {
			continue
		}
		if err := l.source.Subscribe(b.names, b.cb, c.owner); err != nil {
			panicking = false
			rollback()
			observability.LogListenFailed(c.logger, l.id, b.names, err)
			return &SubscriptionError{Source: l.source, Names: b.names, Err: err}
		}
		done = append(done, b)
	}
	panicking = false

	for _, b := range done {
		l.shadow.On(b.names, b.cb, nil)
	}
	return nil
}

// keyOf normalizes a source to its listener-side index key.
func keyOf(source Source) Source {
	if target := channelOf(source); target != nil {
		return target
	}
	return source
}

// StopListening removes subscriptions c made through ListenTo. A nil
// source means every source; empty names and a nil cb widen the match the
// same way they do for Off.
func (c *Channel) StopListening(source Source, names string, cb *Callback) *Channel {
	if c.listeningTo == nil {
		return c
	}

	var targets []*Listening
	if source != nil {
		l, ok := c.listeningTo.Get(keyOf(source))
		if !ok {
			return c
		}
		targets = []*Listening{l}
	} else {
		targets = c.listeningTo.Values()
	}

	for _, l := range targets {
		if l.target != nil {
			l.target.Off(names, cb, c.owner)
			continue
		}
		l.source.Unsubscribe(names, cb, c.owner)
		l.unsubscribe(names, cb)
	}
	return c
}

func (c *Channel) listeningIndex() *registry.Registry[Source, *Listening] {
	if c.listeningTo == nil {
		c.listeningTo = registry.New[Source, *Listening]()
	}
	return c.listeningTo
}

func (c *Channel) listenerIndex() *registry.Registry[string, *Listening] {
	if c.listeners == nil {
		c.listeners = registry.New[string, *Listening]()
	}
	return c.listeners
}

// HasHandlers reports whether name has handlers. An empty name asks about
// any name.
func (c *Channel) HasHandlers(name string) bool {
	if name == "" {
		return len(c.handlers) > 0
	}
	return len(c.handlers[name]) > 0
}

// HandlerCount returns the number of handlers registered for name.
func (c *Channel) HandlerCount(name string) int {
	return len(c.handlers[name])
}

// ListeningTo returns the Listenings in which c is the listener, in
// subscription order.
func (c *Channel) ListeningTo() []*Listening {
	if c.listeningTo == nil {
		return nil
	}
	return c.listeningTo.Values()
}

// Listeners returns the counted Listenings in which c is the source.
func (c *Channel) Listeners() []*Listening {
	if c.listeners == nil {
		return nil
	}
	return c.listeners.Values()
}
