// Package script runs game-mode scripts against the event bus.
//
// A Script is started once with a Context, updated every frame while game
// mode is enabled and stopped on shutdown. Scripts subscribe through the
// Subscriber in their Context so that every subscription is released when
// the script stops.
//
// Scripts are driven from the loop goroutine. Input and configuration
// events are queued, so handlers registered by scripts also run there.
package script

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/event"
)

// Errors returned by scripts and the runner.
var (
	ErrNotStarted     = errors.New("script not started")
	ErrAlreadyStarted = errors.New("already started")
	ErrStopped        = errors.New("script stopped")
)

// Script is a unit of game logic.
type Script interface {
	// Name identifies the script in logs and events.
	Name() string

	// Start registers handlers and runs initialisation code.
	Start(ctx *Context) error

	// Update is called once per frame with the seconds since the last frame.
	Update(dt float64) error

	// Stop runs cleanup code. Subscriptions are released by the runner.
	Stop() error
}

// Context is what a running script sees of the application.
type Context struct {
	// Bus is the event bus scripts trigger and queue on.
	Bus *event.Bus

	// Events owns the script's subscriptions.
	Events *event.Subscriber

	// Log is scoped to the script.
	Log zerolog.Logger

	// Input is the shared action map.
	Input *InputMap
}

// Error wraps a failure raised by a script.
type Error struct {
	Script string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %s: %v", e.Script, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
