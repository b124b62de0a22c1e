package events

import "github.com/dshills/demon/internal/event"

// Script event kinds.
const (
	// KindScriptLoaded is queued after a runtime script started.
	KindScriptLoaded event.Kind = "script.loaded"

	// KindScriptFailed is queued when a runtime script fails to start or update.
	KindScriptFailed event.Kind = "script.failed"
)

// ScriptLoaded names a script that started.
type ScriptLoaded struct {
	event.Base
	Name string
}

// Kind implements event.Event.
func (*ScriptLoaded) Kind() event.Kind { return KindScriptLoaded }

// Fields implements Fielder.
func (e *ScriptLoaded) Fields() map[string]any {
	return map[string]any{"name": e.Name}
}

// ScriptFailed names a script and the error it produced.
type ScriptFailed struct {
	event.Base
	Name string
	Err  error
}

// Kind implements event.Event.
func (*ScriptFailed) Kind() event.Kind { return KindScriptFailed }

// Fields implements Fielder.
func (e *ScriptFailed) Fields() map[string]any {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return map[string]any{"name": e.Name, "error": msg}
}
