package events

import (
	"errors"

	"github.com/dshills/demon/internal/event"
)

// builders maps the built-in kinds to constructors that read the same keys
// their Fields method writes.
var builders = map[event.Kind]func(map[string]any) event.Event{
	KindWindowResized: func(v map[string]any) event.Event {
		return &WindowResized{Width: intField(v, "width"), Height: intField(v, "height")}
	},
	KindWindowFocusChanged: func(v map[string]any) event.Event {
		return &WindowFocusChanged{Focused: boolField(v, "focused")}
	},
	KindKeyPressed: func(v map[string]any) event.Event {
		e := &KeyPressed{Key: stringField(v, "key"), Mods: modsField(v, "mods")}
		if r := []rune(stringField(v, "rune")); len(r) == 1 {
			e.Rune = r[0]
		}
		return e
	},
	KindKeyReleased: func(v map[string]any) event.Event {
		return &KeyReleased{Key: stringField(v, "key"), Mods: modsField(v, "mods")}
	},
	KindMouseClicked: func(v map[string]any) event.Event {
		return &MouseClicked{
			X:      intField(v, "x"),
			Y:      intField(v, "y"),
			Button: MouseButton(stringField(v, "button")),
			Mods:   modsField(v, "mods"),
		}
	},
	KindMouseMoved: func(v map[string]any) event.Event {
		return &MouseMoved{X: intField(v, "x"), Y: intField(v, "y")}
	},
	KindMouseScrolled: func(v map[string]any) event.Event {
		return &MouseScrolled{
			X:      intField(v, "x"),
			Y:      intField(v, "y"),
			DeltaX: intField(v, "dx"),
			DeltaY: intField(v, "dy"),
		}
	},
	KindSelectionChanged: func(v map[string]any) event.Event {
		return &SelectionChanged{Selected: stringsField(v, "selected"), Additive: boolField(v, "additive")}
	},
	KindGameModeChanged: func(v map[string]any) event.Event {
		return &GameModeChanged{Enabled: boolField(v, "enabled")}
	},
	KindFrameTick: func(v map[string]any) event.Event {
		return &FrameTick{Frame: uint64(max(intField(v, "frame"), 0)), Dt: floatField(v, "dt")}
	},
	KindQuitRequested: func(v map[string]any) event.Event {
		return &QuitRequested{Reason: stringField(v, "reason")}
	},
	KindConfigReloaded: func(v map[string]any) event.Event {
		return &ConfigReloaded{Path: stringField(v, "path")}
	},
	KindScriptLoaded: func(v map[string]any) event.Event {
		return &ScriptLoaded{Name: stringField(v, "name")}
	},
	KindScriptFailed: func(v map[string]any) event.Event {
		e := &ScriptFailed{Name: stringField(v, "name")}
		if msg := stringField(v, "error"); msg != "" {
			e.Err = errors.New(msg)
		}
		return e
	},
}

// FromFields builds an event of kind from a field map. Built-in kinds get
// their typed payload, so typed handlers receive what they expect; any
// other kind yields a Custom event carrying values. Missing or mistyped
// fields are left at their zero value.
func FromFields(kind event.Kind, values map[string]any) event.Event {
	if build, ok := builders[kind]; ok {
		return build(values)
	}
	return NewCustom(kind, values)
}

// IsBuiltin reports whether kind has a typed payload in this package.
func IsBuiltin(kind event.Kind) bool {
	_, ok := builders[kind]
	return ok
}

func intField(v map[string]any, key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func floatField(v map[string]any, key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func boolField(v map[string]any, key string) bool {
	b, _ := v[key].(bool)
	return b
}

func stringField(v map[string]any, key string) string {
	s, _ := v[key].(string)
	return s
}

func stringsField(v map[string]any, key string) []string {
	items, _ := v[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func modsField(v map[string]any, key string) []Modifier {
	names := stringsField(v, key)
	if len(names) == 0 {
		return nil
	}
	mods := make([]Modifier, len(names))
	for i, name := range names {
		mods[i] = Modifier(name)
	}
	return mods
}
