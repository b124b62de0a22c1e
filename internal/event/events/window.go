package events

import "github.com/dshills/demon/internal/event"

// Window event kinds.
const (
	// KindWindowResized is triggered when the drawing surface changes size.
	KindWindowResized event.Kind = "window.resized"

	// KindWindowFocusChanged is triggered when the window gains or loses focus.
	KindWindowFocusChanged event.Kind = "window.focus.changed"
)

// WindowResized carries the new surface size in cells or pixels.
type WindowResized struct {
	event.Base
	Width  int
	Height int
}

// Kind implements event.Event.
func (*WindowResized) Kind() event.Kind { return KindWindowResized }

// Fields implements Fielder.
func (e *WindowResized) Fields() map[string]any {
	return map[string]any{"width": e.Width, "height": e.Height}
}

// WindowFocusChanged reports a focus transition.
type WindowFocusChanged struct {
	event.Base
	Focused bool
}

// Kind implements event.Event.
func (*WindowFocusChanged) Kind() event.Kind { return KindWindowFocusChanged }

// Fields implements Fielder.
func (e *WindowFocusChanged) Fields() map[string]any {
	return map[string]any{"focused": e.Focused}
}
