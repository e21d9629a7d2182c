package event

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// foreignSource is an emitter that does not expose a Channel, so listeners
// track it in interop mode.
type foreignSource struct {
	subs    []foreignSub
	failOn  string
	panicOn string
}

type foreignSub struct {
	name    string
	cb      *Callback
	context any
}

func (s *foreignSource) Subscribe(names string, cb *Callback, context any) error {
	for _, name := range strings.Fields(names) {
		switch name {
		case s.failOn:
			return errors.New("refused")
		case s.panicOn:
			panic("boom")
		}
		s.subs = append(s.subs, foreignSub{name: name, cb: cb, context: context})
	}
	return nil
}

func (s *foreignSource) Unsubscribe(names string, cb *Callback, context any) {
	filter := strings.Fields(names)
	kept := s.subs[:0]
	for _, sub := range s.subs {
		nameMatch := len(filter) == 0
		for _, n := range filter {
			nameMatch = nameMatch || n == sub.name
		}
		if nameMatch && (cb == nil || sub.cb.matches(cb)) && (context == nil || context == sub.context) {
			continue
		}
		kept = append(kept, sub)
	}
	s.subs = kept
}

func (s *foreignSource) emit(name string, args ...any) {
	for _, sub := range append([]foreignSub(nil), s.subs...) {
		if sub.name == name {
			sub.cb.call(sub.context, args)
		}
	}
}

func TestListenTo(t *testing.T) {
	t.Run("listen then stop", func(t *testing.T) {
		a := New(&widget{name: "a"})
		b := New(&widget{name: "b"})
		rec := &recorder{}

		require.NoError(t, a.ListenTo(b, "e", rec.cb("cb")))
		b.Trigger("e", 1)
		require.Len(t, rec.calls, 1)
		assert.Same(t, a.Owner(), rec.calls[0].receiver)
		assert.Equal(t, []any{1}, rec.calls[0].args)

		a.StopListening(b, "", nil)
		b.Trigger("e", 2)
		assert.Len(t, rec.calls, 1)
		assert.Empty(t, b.Listeners())
		assert.Empty(t, a.ListeningTo())
		assert.False(t, b.HasHandlers(""))
	})

	t.Run("one listening per source", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(b, "x y", cb))
		require.NoError(t, a.ListenTo(b, "z", cb))

		require.Len(t, a.ListeningTo(), 1)
		l := a.ListeningTo()[0]
		assert.Equal(t, Counting, l.Mode())
		assert.Equal(t, 3, l.Count())
		assert.Equal(t, a.ListenID(), l.ID())
		assert.Same(t, a, l.Listener())
		assert.Same(t, b, l.Source())

		require.Len(t, b.Listeners(), 1)
		assert.Same(t, l, b.Listeners()[0])
	})

	t.Run("count tracks partial stops", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		cb1 := Func(func(...any) {})
		cb2 := Func(func(...any) {})

		require.NoError(t, a.ListenTo(b, "x", cb1))
		require.NoError(t, a.ListenTo(b, "x y", cb2))
		l := a.ListeningTo()[0]

		a.StopListening(b, "x", cb2)
		assert.Equal(t, 2, l.Count())
		a.StopListening(b, "", cb1)
		assert.Equal(t, 1, l.Count())
		require.Len(t, a.ListeningTo(), 1)

		a.StopListening(b, "y", nil)
		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
	})

	t.Run("source off releases listening", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(b, "e", cb))
		b.Off("e", nil, nil)

		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
	})

	t.Run("source drop-everything releases listening", func(t *testing.T) {
		a := New(nil)
		c := New(nil)
		b := New(nil)
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(b, "e", cb))
		require.NoError(t, c.ListenTo(b, "f", cb))
		b.Off("", nil, nil)

		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, c.ListeningTo())
		assert.Empty(t, b.Listeners())
		assert.False(t, b.HasHandlers(""))
	})

	t.Run("stop listening to everything", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		c := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenTo(b, "e", rec.cb("b")))
		require.NoError(t, a.ListenTo(c, "e", rec.cb("c")))
		a.On("e", rec.cb("own"), nil)

		a.StopListening(nil, "", nil)
		b.Trigger("e")
		c.Trigger("e")
		a.Trigger("e")

		assert.Equal(t, []string{"own"}, rec.tags())
		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
		assert.Empty(t, c.Listeners())
	})

	t.Run("stop listening leaves the source's own handlers", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		cb := Func(func(...any) {})

		b.On("e", cb, nil)
		require.NoError(t, a.ListenTo(b, "e", cb))
		a.StopListening(b, "e", cb)

		assert.Equal(t, 1, b.HandlerCount("e"))
	})

	t.Run("unknown source is a no-op", func(t *testing.T) {
		a := New(nil)
		assert.NotPanics(t, func() {
			a.StopListening(New(nil), "e", nil)
			a.StopListening(nil, "", nil)
		})
	})

	t.Run("nil source or callback leaves nothing", func(t *testing.T) {
		a := New(nil)
		b := New(nil)

		require.NoError(t, a.ListenTo(nil, "e", Func(func(...any) {})))
		require.NoError(t, a.ListenTo(b, "e", nil))
		require.NoError(t, a.ListenTo(b, "", Func(func(...any) {})))

		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
	})

	t.Run("embedded channel is the same source", func(t *testing.T) {
		type thing struct{ *Channel }
		b := &thing{}
		b.Channel = New(b)
		a := New(nil)
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(b, "e", cb))
		require.NoError(t, a.ListenTo(b.Channel, "f", cb))
		require.Len(t, a.ListeningTo(), 1)

		a.StopListening(b.Channel, "", nil)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("listen to self", func(t *testing.T) {
		a := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenTo(a, "e", rec.cb("self")))
		a.Trigger("e")
		a.StopListening(a, "", nil)
		a.Trigger("e")

		assert.Len(t, rec.calls, 1)
		assert.Empty(t, a.Listeners())
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("map form", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenToMap(b, map[string]*Callback{"y": rec.cb("y"), "x": rec.cb("x")}))
		b.Trigger("x y")
		assert.Equal(t, []string{"x", "y"}, rec.tags())
		assert.Equal(t, 2, a.ListeningTo()[0].Count())
	})
}

func TestListenToOnce(t *testing.T) {
	t.Run("fires once then cleans up", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenToOnce(b, "e", rec.cb("once")))
		b.Trigger("e")
		b.Trigger("e")

		assert.Len(t, rec.calls, 1)
		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
	})

	t.Run("once per name", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenToOnce(b, "x y", rec.cb("once")))
		b.Trigger("x")
		require.Len(t, a.ListeningTo(), 1)
		assert.Equal(t, 1, a.ListeningTo()[0].Count())

		b.Trigger("x y")
		assert.Len(t, rec.calls, 2)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("stop with the original callback", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		rec := &recorder{}
		cb := rec.cb("once")

		require.NoError(t, a.ListenToOnce(b, "e", cb))
		a.StopListening(b, "e", cb)
		b.Trigger("e")

		assert.Empty(t, rec.calls)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("map form", func(t *testing.T) {
		a := New(nil)
		b := New(nil)
		rec := &recorder{}

		require.NoError(t, a.ListenToOnceMap(b, map[string]*Callback{"x": rec.cb("x"), "y": rec.cb("y")}))
		b.Trigger("y x y x")
		assert.Equal(t, []string{"y", "x"}, rec.tags())
		assert.Empty(t, b.Listeners())
	})
}

func TestInteropListening(t *testing.T) {
	t.Run("mirrors and cleans up", func(t *testing.T) {
		a := New(&widget{name: "a"})
		src := &foreignSource{}
		rec := &recorder{}

		require.NoError(t, a.ListenTo(src, "x y", rec.cb("cb")))
		require.Len(t, a.ListeningTo(), 1)
		l := a.ListeningTo()[0]
		assert.Equal(t, Interop, l.Mode())
		assert.Equal(t, "interop", l.Mode().String())
		require.Len(t, src.subs, 2)
		assert.Same(t, a.Owner(), src.subs[0].context)

		src.emit("x", 1)
		require.Len(t, rec.calls, 1)
		assert.Same(t, a.Owner(), rec.calls[0].receiver)

		a.StopListening(src, "x", nil)
		assert.Len(t, src.subs, 1)
		require.Len(t, a.ListeningTo(), 1)

		a.StopListening(src, "y", nil)
		assert.Empty(t, src.subs)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("stop everything", func(t *testing.T) {
		a := New(nil)
		src := &foreignSource{}
		b := New(nil)
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(src, "x", cb))
		require.NoError(t, a.ListenTo(b, "x", cb))
		a.StopListening(nil, "", nil)

		assert.Empty(t, src.subs)
		assert.Empty(t, a.ListeningTo())
		assert.Empty(t, b.Listeners())
	})

	t.Run("listen once", func(t *testing.T) {
		a := New(nil)
		src := &foreignSource{}
		rec := &recorder{}

		require.NoError(t, a.ListenToOnce(src, "e", rec.cb("once")))
		src.emit("e")
		src.emit("e")

		assert.Len(t, rec.calls, 1)
		assert.Empty(t, src.subs)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("refused subscription rolls back a new listening", func(t *testing.T) {
		a := New(nil)
		src := &foreignSource{failOn: "b"}
		cb := Func(func(...any) {})

		err := a.ListenToMap(src, map[string]*Callback{"a": cb, "b": cb})
		require.Error(t, err)

		var subErr *SubscriptionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, "b", subErr.Names)
		assert.Equal(t, Source(src), subErr.Source)
		assert.EqualError(t, errors.Unwrap(err), "refused")
		assert.Contains(t, err.Error(), "refused")

		assert.Empty(t, src.subs)
		assert.Empty(t, a.ListeningTo())
	})

	t.Run("refused subscription keeps an existing listening intact", func(t *testing.T) {
		a := New(nil)
		src := &foreignSource{failOn: "b"}
		cb := Func(func(...any) {})

		require.NoError(t, a.ListenTo(src, "a", cb))
		require.Error(t, a.ListenTo(src, "b", cb))

		require.Len(t, a.ListeningTo(), 1)
		l := a.ListeningTo()[0]
		assert.Equal(t, 1, l.shadow.HandlerCount("a"))
		assert.Equal(t, 0, l.shadow.HandlerCount("b"))
		assert.Len(t, src.subs, 1)
	})

	t.Run("panicking subscription rolls back and re-panics", func(t *testing.T) {
		a := New(nil)
		src := &foreignSource{panicOn: "p"}
		cb := Func(func(...any) {})

		assert.PanicsWithValue(t, "boom", func() {
			_ = a.ListenToMap(src, map[string]*Callback{"a": cb, "p": cb})
		})
		assert.Empty(t, src.subs)
		assert.Empty(t, a.ListeningTo())

		require.NoError(t, a.ListenTo(src, "a", cb))
		assert.Len(t, a.ListeningTo(), 1)
	})
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "counting", Counting.String())
	assert.Equal(t, "interop", Interop.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
