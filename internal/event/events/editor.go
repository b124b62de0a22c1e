package events

import "github.com/dshills/demon/internal/event"

// Editor event kinds.
const (
	// KindSelectionChanged is triggered when the set of selected objects changes.
	KindSelectionChanged event.Kind = "editor.selection.changed"

	// KindGameModeChanged is triggered when game mode is switched on or off.
	KindGameModeChanged event.Kind = "editor.game_mode.changed"
)

// SelectionChanged carries the names of the selected objects. Additive is
// set when the selection extends the previous one.
type SelectionChanged struct {
	event.Base
	Selected []string
	Additive bool
}

// Kind implements event.Event.
func (*SelectionChanged) Kind() event.Kind { return KindSelectionChanged }

// Fields implements Fielder.
func (e *SelectionChanged) Fields() map[string]any {
	selected := make([]any, len(e.Selected))
	for i, s := range e.Selected {
		selected[i] = s
	}
	return map[string]any{"selected": selected, "additive": e.Additive}
}

// GameModeChanged switches script updates on or off.
type GameModeChanged struct {
	event.Base
	Enabled bool
}

// Kind implements event.Event.
func (*GameModeChanged) Kind() event.Kind { return KindGameModeChanged }

// Fields implements Fielder.
func (e *GameModeChanged) Fields() map[string]any {
	return map[string]any{"enabled": e.Enabled}
}
