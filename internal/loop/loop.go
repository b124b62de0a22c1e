// Package loop drives the per-frame update cycle: a frame tick event,
// registered updaters, then one drain of the event queue.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

// ErrAlreadyRunning is returned when Run is called on a running loop.
var ErrAlreadyRunning = errors.New("loop is already running")

// Updater is called once per frame with the seconds since the last frame.
type Updater interface {
	Update(dt float64) error
}

// UpdaterFunc adapts a function to the Updater interface.
type UpdaterFunc func(dt float64) error

// Update calls f(dt).
func (f UpdaterFunc) Update(dt float64) error {
	return f(dt)
}

// Option configures a Loop.
type Option func(*Loop)

// WithTickRate sets the number of frames per second.
func WithTickRate(hz int) Option {
	return func(l *Loop) {
		if hz > 0 {
			l.tickRate = hz
		}
	}
}

// WithStopOnError makes Run return the first frame error instead of logging it.
func WithStopOnError(stop bool) Option {
	return func(l *Loop) {
		l.stopOnError = stop
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) {
		l.log = logger
	}
}

// WithFrameObserver registers a callback that receives each frame's duration.
func WithFrameObserver(fn func(time.Duration)) Option {
	return func(l *Loop) {
		l.observe = fn
	}
}

// Loop runs frames at a fixed rate.
type Loop struct {
	bus         *event.Bus
	log         zerolog.Logger
	tickRate    int
	stopOnError bool
	observe     func(time.Duration)

	mu       sync.Mutex
	updaters []Updater

	frame   atomic.Uint64
	running atomic.Bool
	quit    atomic.Bool
}

// New creates a loop that ticks bus.
func New(bus *event.Bus, opts ...Option) *Loop {
	l := &Loop{
		bus:      bus,
		log:      zerolog.Nop(),
		tickRate: 60,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add registers an updater. Updaters run in registration order.
func (l *Loop) Add(u Updater) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updaters = append(l.updaters, u)
}

// Frame returns the number of frames run so far.
func (l *Loop) Frame() uint64 {
	return l.frame.Load()
}

// IsRunning reports whether Run is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Quit asks Run to return after the current frame. A Quit issued before
// Run starts makes that Run return without running a frame.
func (l *Loop) Quit() {
	l.quit.Store(true)
}

// Step runs one frame: FrameTick is triggered, updaters run, then the
// queue is drained once. Errors from every stage are joined.
func (l *Loop) Step(dt float64) error {
	start := time.Now()
	frame := l.frame.Add(1)

	var errs []error
	if err := l.bus.Trigger(&events.FrameTick{Frame: frame, Dt: dt}); err != nil {
		errs = append(errs, err)
	}

	l.mu.Lock()
	updaters := append([]Updater(nil), l.updaters...)
	l.mu.Unlock()

	for _, u := range updaters {
		if err := u.Update(dt); err != nil {
			errs = append(errs, err)
		}
	}

	if err := l.bus.Dispatch(); err != nil {
		errs = append(errs, err)
	}

	if l.observe != nil {
		l.observe(time.Since(start))
	}
	return errors.Join(errs...)
}

// Run ticks until ctx is cancelled, Quit is called or a QuitRequested
// event is delivered.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)
	defer l.quit.Store(false)

	// Custom events of the quit kind are honoured too.
	tok, err := l.bus.SubscribeFunc(events.KindQuitRequested, func(e event.Event) error {
		reason := ""
		switch q := e.(type) {
		case *events.QuitRequested:
			reason = q.Reason
		case *events.Custom:
			reason, _ = q.Values["reason"].(string)
		}
		l.log.Info().Str("reason", reason).Msg("quit requested")
		l.Quit()
		return nil
	})
	if err != nil {
		return err
	}
	defer l.bus.Unsubscribe(events.KindQuitRequested, tok)

	frameTime := time.Second / time.Duration(l.tickRate)
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	l.log.Debug().Int("tick_rate", l.tickRate).Msg("loop started")
	lastUpdate := time.Now()

	for !l.quit.Load() {
		select {
		case <-ctx.Done():
			l.log.Debug().Uint64("frames", l.Frame()).Msg("loop cancelled")
			return nil

		case now := <-ticker.C:
			dt := now.Sub(lastUpdate).Seconds()
			lastUpdate = now

			if err := l.Step(dt); err != nil {
				if l.stopOnError {
					return err
				}
				l.log.Error().Err(err).Uint64("frame", l.Frame()).Msg("frame failed")
			}
		}
	}

	l.log.Debug().Uint64("frames", l.Frame()).Msg("loop stopped")
	return nil
}
