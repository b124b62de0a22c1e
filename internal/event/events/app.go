package events

import "github.com/dshills/demon/internal/event"

// Application event kinds.
const (
	// KindFrameTick is triggered at the start of every frame.
	KindFrameTick event.Kind = "app.frame.tick"

	// KindQuitRequested asks the application to shut down.
	KindQuitRequested event.Kind = "app.quit.requested"

	// KindConfigReloaded is triggered after the configuration file was reloaded.
	KindConfigReloaded event.Kind = "config.reloaded"
)

// FrameTick carries the frame number and the seconds since the previous frame.
type FrameTick struct {
	event.Base
	Frame uint64
	Dt    float64
}

// Kind implements event.Event.
func (*FrameTick) Kind() event.Kind { return KindFrameTick }

// Fields implements Fielder.
func (e *FrameTick) Fields() map[string]any {
	return map[string]any{"frame": e.Frame, "dt": e.Dt}
}

// QuitRequested asks the frame loop to stop.
type QuitRequested struct {
	event.Base
	Reason string
}

// Kind implements event.Event.
func (*QuitRequested) Kind() event.Kind { return KindQuitRequested }

// Fields implements Fielder.
func (e *QuitRequested) Fields() map[string]any {
	return map[string]any{"reason": e.Reason}
}

// ConfigReloaded names the configuration file that was reloaded.
type ConfigReloaded struct {
	event.Base
	Path string
}

// Kind implements event.Event.
func (*ConfigReloaded) Kind() event.Kind { return KindConfigReloaded }

// Fields implements Fielder.
func (e *ConfigReloaded) Fields() map[string]any {
	return map[string]any{"path": e.Path}
}
