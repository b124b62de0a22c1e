// Package event provides the typed publish/subscribe bus used by Demon.
//
// Components talk to each other by triggering events instead of calling one
// another directly. A producer builds an event value, hands it to the bus and
// every handler subscribed to that event's kind runs in subscription order.
//
// # Kinds
//
// Every event reports a Kind, a stable dot-separated name:
//
//	window.resized         - the drawing surface changed size
//	input.key.pressed      - a key went down
//	editor.selection.changed - the selected objects changed
//
// Kinds are plain strings, so they survive logging and scripting boundaries
// unchanged.
//
// # Dispatch
//
// Trigger delivers an event immediately on the calling goroutine. Queue
// stores it for later and Dispatch drains everything queued so far, usually
// once per frame:
//
//	bus := event.New()
//	tok, _ := event.On(bus, events.KindWindowResized, func(e *events.WindowResized) error {
//	    fmt.Printf("%dx%d\n", e.Width, e.Height)
//	    return nil
//	})
//	defer bus.Unsubscribe(events.KindWindowResized, tok)
//
//	bus.Trigger(&events.WindowResized{Width: 1024, Height: 768})
//	bus.Queue(&events.WindowResized{Width: 800, Height: 600})
//	bus.Dispatch()
//
// A handler may call StopPropagation on the event; handlers after it in the
// same pass are skipped. A handler error aborts the pass and is returned to
// the caller wrapped in a *HandlerError. Panics are not recovered.
//
// # Thread Safety
//
// The registry and the pending queue are guarded by separate locks and no
// lock is held while a handler runs. Handlers may therefore subscribe,
// unsubscribe, trigger or queue from inside a handler. Trigger works on a
// snapshot of the subscriptions; a subscription removed mid-pass is skipped
// if the pass has not reached it yet.
//
// # Subpackages
//
//   - events: concrete event types and their kinds
package event
