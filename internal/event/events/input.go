package events

import (
	"strings"

	"github.com/dshills/demon/internal/event"
)

// Input event kinds.
const (
	// KindKeyPressed is triggered when a key goes down.
	KindKeyPressed event.Kind = "input.key.pressed"

	// KindKeyReleased is triggered when a key goes up.
	KindKeyReleased event.Kind = "input.key.released"

	// KindMouseClicked is triggered when a mouse button is pressed.
	KindMouseClicked event.Kind = "input.mouse.clicked"

	// KindMouseMoved is triggered when the pointer moves without buttons held.
	KindMouseMoved event.Kind = "input.mouse.moved"

	// KindMouseScrolled is triggered when the wheel turns.
	KindMouseScrolled event.Kind = "input.mouse.scrolled"
)

// Modifier is a keyboard modifier.
type Modifier string

// Keyboard modifiers, in the order they appear in key names.
const (
	ModifierCtrl  Modifier = "ctrl"
	ModifierAlt   Modifier = "alt"
	ModifierShift Modifier = "shift"
	ModifierMeta  Modifier = "meta"
)

// MouseButton is a mouse button.
type MouseButton string

// Mouse buttons.
const (
	MouseButtonLeft   MouseButton = "left"
	MouseButtonMiddle MouseButton = "middle"
	MouseButtonRight  MouseButton = "right"
)

// KeyPressed reports a key press. Key is a lower-case key name ("w",
// "escape", "f1"); Rune is set for printable keys.
type KeyPressed struct {
	event.Base
	Key  string
	Rune rune
	Mods []Modifier
}

// Kind implements event.Event.
func (*KeyPressed) Kind() event.Kind { return KindKeyPressed }

// Name returns the input-map name of the press, e.g. "w" or "ctrl-s".
func (e *KeyPressed) Name() string {
	return keyName(e.Key, e.Mods)
}

// Fields implements Fielder.
func (e *KeyPressed) Fields() map[string]any {
	return map[string]any{
		"key":  e.Key,
		"name": e.Name(),
		"rune": string(e.Rune),
		"mods": modStrings(e.Mods),
	}
}

// KeyReleased reports a key release.
type KeyReleased struct {
	event.Base
	Key  string
	Mods []Modifier
}

// Kind implements event.Event.
func (*KeyReleased) Kind() event.Kind { return KindKeyReleased }

// Name returns the input-map name of the release, e.g. "w-up".
func (e *KeyReleased) Name() string {
	return keyName(e.Key, e.Mods) + "-up"
}

// Fields implements Fielder.
func (e *KeyReleased) Fields() map[string]any {
	return map[string]any{
		"key":  e.Key,
		"name": e.Name(),
		"mods": modStrings(e.Mods),
	}
}

// MouseClicked reports a button press at a position.
type MouseClicked struct {
	event.Base
	X, Y   int
	Button MouseButton
	Mods   []Modifier
}

// Kind implements event.Event.
func (*MouseClicked) Kind() event.Kind { return KindMouseClicked }

// Fields implements Fielder.
func (e *MouseClicked) Fields() map[string]any {
	return map[string]any{
		"x":      e.X,
		"y":      e.Y,
		"button": string(e.Button),
		"mods":   modStrings(e.Mods),
	}
}

// MouseMoved reports pointer motion.
type MouseMoved struct {
	event.Base
	X, Y int
}

// Kind implements event.Event.
func (*MouseMoved) Kind() event.Kind { return KindMouseMoved }

// Fields implements Fielder.
func (e *MouseMoved) Fields() map[string]any {
	return map[string]any{"x": e.X, "y": e.Y}
}

// MouseScrolled reports wheel motion. Positive DeltaY scrolls down.
type MouseScrolled struct {
	event.Base
	X, Y           int
	DeltaX, DeltaY int
}

// Kind implements event.Event.
func (*MouseScrolled) Kind() event.Kind { return KindMouseScrolled }

// Fields implements Fielder.
func (e *MouseScrolled) Fields() map[string]any {
	return map[string]any{"x": e.X, "y": e.Y, "dx": e.DeltaX, "dy": e.DeltaY}
}

func keyName(key string, mods []Modifier) string {
	if len(mods) == 0 {
		return key
	}
	var sb strings.Builder
	for _, m := range mods {
		sb.WriteString(string(m))
		sb.WriteByte('-')
	}
	sb.WriteString(key)
	return sb.String()
}

func modStrings(mods []Modifier) []any {
	out := make([]any, len(mods))
	for i, m := range mods {
		out[i] = string(m)
	}
	return out
}
