package events

import (
	"maps"

	"github.com/dshills/demon/internal/event"
)

// Custom is an event whose kind is chosen at run time, used by scripts.
type Custom struct {
	event.Base
	Name   event.Kind
	Values map[string]any
}

// NewCustom creates a custom event of the given kind.
func NewCustom(kind event.Kind, values map[string]any) *Custom {
	if values == nil {
		values = make(map[string]any)
	}
	return &Custom{Name: kind, Values: values}
}

// Kind implements event.Event.
func (e *Custom) Kind() event.Kind { return e.Name }

// Fields implements Fielder. The result is a copy.
func (e *Custom) Fields() map[string]any {
	return maps.Clone(e.Values)
}
