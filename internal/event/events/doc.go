// Package events defines the concrete event types carried by the Demon bus.
//
// Each event type has a kind constant and a struct embedding event.Base.
// Events are grouped by the part of the program that produces them:
//
//   - Window events: resize, focus
//   - Input events: keys and mouse, produced by the terminal input source
//   - Editor events: selection, game mode
//   - App events: frame ticks, quit requests, config reloads
//   - Script events: runtime script lifecycle
//
// # Usage
//
//	bus.Trigger(&events.WindowResized{Width: 1024, Height: 768})
//
// Handlers receive the same pointer, so a handler can stop propagation:
//
//	event.On(bus, events.KindWindowResized, func(e *events.WindowResized) error {
//	    e.StopPropagation()
//	    return nil
//	})
//
// # Kind Naming Convention
//
// Kinds follow a hierarchical dot notation:
//
//	<area>.<entity>.<action>
//
// Examples:
//   - input.key.pressed
//   - editor.selection.changed
//   - app.frame.tick
//
// Every type also implements Fields, which flattens the payload into a map
// for scripts and logs.
package events

import "github.com/dshills/demon/internal/event"

// Fielder is implemented by events that can describe their payload as a map.
type Fielder interface {
	event.Event
	Fields() map[string]any
}
