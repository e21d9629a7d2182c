// Package event provides named-event channels with attributable, leak-free
// subscriptions between channels.
//
// # Overview
//
// A Channel is a per-object registry of named handlers and the dispatch
// engine for them:
//
//   - On / Off / Once register and remove handlers
//   - Trigger dispatches a name to its handlers, then to the wildcard "all"
//   - ListenTo / ListenToOnce / StopListening subscribe to another Source
//     and keep track of it, so everything can be torn down at once
//
// # Callbacks
//
// Go funcs are not comparable, so handlers are registered through a
// *Callback. The pointer is the identity used by Off:
//
//	onSave := event.Func(func(args ...any) { fmt.Println("saved", args) })
//	ch.On("save", onSave, nil)
//	ch.Trigger("save", 42)
//	ch.Off("save", onSave, nil)
//
// Method callbacks also receive the invocation context: the context given
// at registration, or the channel owner when none was given.
//
// # Names
//
// Every names argument accepts one name or a space-separated list. The map
// forms (OnMap, OnceMap, ListenToMap, ListenToOnceMap) register one callback
// per name and process names in sorted order.
//
// # Listening
//
// When a channel listens to a source, a Listening record links the two
// sides: the listener indexes it under the source, and (in counting mode)
// the source indexes it under the listener's listen id. The record is
// destroyed as soon as the last handler it tracks is removed, from either
// side.
//
// Sources that expose their own *Channel (EventChannel) are tracked by
// counting handlers. Any other Source is tracked in interop mode: the
// subscription is mirrored in a private shadow channel on the Listening.
//
// # Dispatch
//
// Handlers run synchronously in registration order. Handlers added during
// a dispatch do not run in that dispatch; handlers removed during it still
// do. A panicking handler propagates out of Trigger and the remaining
// handlers are skipped.
//
// # Thread Safety
//
// A Channel is not safe for concurrent use. Reentrant use from inside a
// handler (Trigger, On, Off, ListenTo on the same or another channel) is
// supported.
package event
