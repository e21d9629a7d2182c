package event

import "github.com/randalmurphal/observable/pkg/observable/observability"

// Mode is how a Listening detects that it no longer tracks anything.
type Mode int

const (
	// Counting tracks the number of live handlers registered on a source
	// Channel through the Listening.
	Counting Mode = iota

	// Interop mirrors subscriptions to a foreign Source in a shadow channel.
	Interop
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Counting:
		return "counting"
	case Interop:
		return "interop"
	default:
		return "unknown"
	}
}

// Listening links one listener channel to one source. It is shared by every
// event name the listener subscribes to on that source, and removes itself
// from both sides once it tracks nothing.
type Listening struct {
	id       string
	listener *Channel
	source   Source

	// Counting mode.
	target *Channel
	count  int

	// Interop mode.
	shadow *Channel
}

func newListening(listener *Channel, source Source) *Listening {
	l := &Listening{
		id:       listener.ListenID(),
		listener: listener,
		source:   source,
	}
	if target := channelOf(source); target != nil {
		l.target = target
	} else {
		l.shadow = New(l)
	}
	return l
}

// ID returns the listener's listen id.
func (l *Listening) ID() string { return l.id }

// Listener returns the listening channel.
func (l *Listening) Listener() *Channel { return l.listener }

// Source returns the source as it was first passed to ListenTo.
func (l *Listening) Source() Source { return l.source }

// Mode returns the bookkeeping mode, fixed at creation.
func (l *Listening) Mode() Mode {
	if l.target != nil {
		return Counting
	}
	return Interop
}

// Count returns the number of live handlers tracked in counting mode.
func (l *Listening) Count() int { return l.count }

// key is the index key on the listener side.
func (l *Listening) key() Source {
	if l.target != nil {
		return l.target
	}
	return l.source
}

// empty reports whether nothing is tracked any more.
func (l *Listening) empty() bool {
	if l.target != nil {
		return l.count <= 0
	}
	return !l.shadow.HasHandlers("")
}

// release accounts for one handler removed from the source channel.
func (l *Listening) release() {
	l.count--
	if l.count == 0 {
		l.cleanup()
	}
}

// unsubscribe removes names/cb from the shadow channel.
func (l *Listening) unsubscribe(names string, cb *Callback) {
	l.shadow.Off(names, cb, nil)
	if l.empty() {
		l.cleanup()
	}
}

// cleanup drops the Listening from the listener's and the source's indexes.
func (l *Listening) cleanup() {
	if l.listener.listeningTo != nil {
		l.listener.listeningTo.Delete(l.key())
	}
	if l.target != nil && l.target.listeners != nil {
		l.target.listeners.Delete(l.id)
	}
	observability.LogListeningCleanup(l.listener.logger, l.id, l.Mode().String())
}
