package script

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger. Scripts get a child logger.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = logger
	}
}

// WithGameMode sets whether scripts are updated before any
// GameModeChanged event arrives.
func WithGameMode(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.gameMode.Store(enabled)
	}
}

// WithInputMap shares an existing input map with the scripts.
func WithInputMap(m *InputMap) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.input = m
		}
	}
}

// WithErrorObserver registers a callback for every script failure.
func WithErrorObserver(fn func(name string, err error)) RunnerOption {
	return func(r *Runner) {
		r.observe = fn
	}
}

type entry struct {
	script Script
	events *event.Subscriber
	active bool
}

// Runner owns a set of scripts. It routes key events into the input map,
// follows GameModeChanged events and updates active scripts each frame.
type Runner struct {
	bus     *event.Bus
	log     zerolog.Logger
	input   *InputMap
	observe func(name string, err error)

	gameMode atomic.Bool

	mu      sync.Mutex
	entries []*entry
	own     *event.Subscriber
	started bool
}

// NewRunner creates a runner on bus.
func NewRunner(bus *event.Bus, opts ...RunnerOption) *Runner {
	r := &Runner{
		bus:   bus,
		log:   zerolog.Nop(),
		input: NewInputMap(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers scripts. Scripts added after Start are started immediately.
func (r *Runner) Add(scripts ...Script) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range scripts {
		e := &entry{script: s}
		r.entries = append(r.entries, e)
		if r.started {
			r.startEntry(e)
		}
	}
}

// Input returns the action map scripts read.
func (r *Runner) Input() *InputMap {
	return r.input
}

// GameMode reports whether scripts are being updated.
func (r *Runner) GameMode() bool {
	return r.gameMode.Load()
}

// SetGameMode enables or disables script updates.
func (r *Runner) SetGameMode(enabled bool) {
	if r.gameMode.Swap(enabled) != enabled {
		r.log.Info().Bool("enabled", enabled).Msg("game mode changed")
	}
}

// Active returns the names of the scripts that are running.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, e := range r.entries {
		if e.active {
			names = append(names, e.script.Name())
		}
	}
	return names
}

// Start subscribes the runner to input and game mode events, then starts
// every script. A script that fails to start is reported with a
// ScriptFailed event and left inactive.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	own := event.NewSubscriber(r.bus)
	subscribe := []func() error{
		func() error {
			_, err := event.On(own, events.KindKeyPressed, func(e *events.KeyPressed) error {
				r.input.Handle(e.Name())
				return nil
			})
			return err
		},
		func() error {
			_, err := event.On(own, events.KindKeyReleased, func(e *events.KeyReleased) error {
				r.input.Handle(e.Name())
				return nil
			})
			return err
		},
		func() error {
			_, err := event.On(own, events.KindGameModeChanged, func(e *events.GameModeChanged) error {
				r.SetGameMode(e.Enabled)
				if !e.Enabled {
					r.input.Release()
				}
				return nil
			})
			return err
		},
	}
	for _, fn := range subscribe {
		if err := fn(); err != nil {
			own.Close()
			return err
		}
	}

	r.own = own
	r.started = true
	for _, e := range r.entries {
		r.startEntry(e)
	}
	return nil
}

// startEntry must be called with r.mu held.
func (r *Runner) startEntry(e *entry) {
	name := e.script.Name()
	e.events = event.NewSubscriber(r.bus)

	ctx := &Context{
		Bus:    r.bus,
		Events: e.events,
		Log:    r.log.With().Str("script", name).Logger(),
		Input:  r.input,
	}
	if err := e.script.Start(ctx); err != nil {
		e.events.Close()
		r.fail(name, &Error{Script: name, Op: "start", Err: err})
		return
	}

	e.active = true
	r.log.Info().Str("script", name).Int("subscriptions", e.events.Count()).Msg("script started")
	r.bus.Queue(&events.ScriptLoaded{Name: name})
}

// Update runs every active script when game mode is enabled. A script whose
// update fails is stopped and reported. The joined failures are returned.
func (r *Runner) Update(dt float64) error {
	if !r.gameMode.Load() {
		return nil
	}

	r.mu.Lock()
	active := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.active {
			active = append(active, e)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, e := range active {
		if err := e.script.Update(dt); err != nil {
			name := e.script.Name()
			serr := &Error{Script: name, Op: "update", Err: err}
			errs = append(errs, serr)

			r.mu.Lock()
			r.stopEntry(e)
			r.mu.Unlock()
			r.fail(name, serr)
		}
	}
	return errors.Join(errs...)
}

// Stop stops every active script in reverse order and releases all
// subscriptions. Stop errors are joined.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}
	r.started = false

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		if err := r.stopEntry(r.entries[i]); err != nil {
			errs = append(errs, err)
		}
	}
	r.own.Close()
	r.own = nil
	return errors.Join(errs...)
}

// stopEntry must be called with r.mu held.
func (r *Runner) stopEntry(e *entry) error {
	if !e.active {
		return nil
	}
	e.active = false

	name := e.script.Name()
	err := e.script.Stop()
	released := e.events.Close()
	r.log.Debug().Str("script", name).Int("released", released).Msg("script stopped")
	if err != nil {
		return &Error{Script: name, Op: "stop", Err: err}
	}
	return nil
}

func (r *Runner) fail(name string, err error) {
	r.log.Error().Err(err).Str("script", name).Msg("script failed")
	if r.observe != nil {
		r.observe(name, err)
	}
	r.bus.Queue(&events.ScriptFailed{Name: name, Err: err})
}
