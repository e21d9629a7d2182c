package event

// Callback is a comparable handle around a handler function.
// Two registrations share identity only if they use the same *Callback.
type Callback struct {
	fn    func(receiver any, args ...any)
	orig  *Callback
	fired bool
}

// Func wraps a function that ignores the invocation context.
func Func(fn func(args ...any)) *Callback {
	if fn == nil {
		return nil
	}
	return &Callback{fn: func(_ any, args ...any) { fn(args...) }}
}

// Method wraps a function that receives the invocation context first.
func Method(fn func(receiver any, args ...any)) *Callback {
	if fn == nil {
		return nil
	}
	return &Callback{fn: fn}
}

// Original returns the callback a once-wrapper was built from, or c itself.
func (c *Callback) Original() *Callback {
	if c != nil && c.orig != nil {
		return c.orig
	}
	return c
}

// matches reports whether a filter passed to Off selects c.
func (c *Callback) matches(filter *Callback) bool {
	return filter == c || (c.orig != nil && filter == c.orig)
}

func (c *Callback) call(receiver any, args []any) {
	c.fn(receiver, args...)
}

// once wraps cb so it runs at most once. offer unregisters the wrapper for
// name and runs before cb.
func once(name string, cb *Callback, offer func(name string, w *Callback)) *Callback {
	w := &Callback{orig: cb}
	w.fn = func(receiver any, args ...any) {
		if w.fired {
			return
		}
		w.fired = true
		offer(name, w)
		cb.fn(receiver, args...)
	}
	return w
}
