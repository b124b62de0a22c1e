// Package app wires the Demon runtime together: configuration, logging,
// the event bus, metrics, runtime scripts, terminal input, the frame loop
// and the configuration watcher. It manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/config"
	"github.com/dshills/demon/internal/config/watcher"
	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/input"
	"github.com/dshills/demon/internal/logging"
	"github.com/dshills/demon/internal/loop"
	"github.com/dshills/demon/internal/metrics"
	"github.com/dshills/demon/internal/script"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to a TOML or YAML configuration file.
	ConfigPath string

	// EnvFile is an optional .env file layered under the process environment.
	EnvFile string

	// Watch reloads ConfigPath when it changes.
	Watch bool

	// LogLevel overrides the configured log level.
	LogLevel string

	// ScriptsDir overrides the configured script directory.
	ScriptsDir string

	// Headless disables terminal input.
	Headless bool

	// LogOutput receives log output. Defaults to stderr.
	LogOutput io.Writer

	// Bus replaces the process-wide default bus.
	Bus *event.Bus

	// Screen replaces the terminal screen, mainly for tests.
	Screen tcell.Screen
}

// Application is the central coordinator for all Demon components.
type Application struct {
	cfg   *config.Config
	log   zerolog.Logger
	level *logging.Level

	bus     *event.Bus
	metrics *metrics.Metrics
	runner  *script.Runner
	input   *input.Source
	loop    *loop.Loop
	watcher *watcher.Watcher

	initOrder []string

	running      atomic.Bool
	shutdown     atomic.Bool
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New creates an Application and initializes its components.
func New(opts Options) (*Application, error) {
	app := &Application{}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts scripts, input and metrics, then runs the frame loop until ctx
// is cancelled or a QuitRequested event is handled. Background components
// are stopped before Run returns.
func (app *Application) Run(ctx context.Context) error {
	if app.shutdown.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		app.wg.Wait()
	}()

	if err := app.runner.Start(); err != nil {
		return &ComponentError{Component: "scripts", Action: "start", Err: err}
	}

	if app.cfg.Metrics.Enabled {
		app.goRun("metrics", func() error {
			return app.metrics.Serve(ctx, app.cfg.Metrics.Addr, logging.Component(app.log, "metrics"))
		})
	}
	if app.input != nil {
		app.goRun("input", func() error {
			err := app.input.Run(ctx)
			if errors.Is(err, input.ErrClosed) {
				return nil
			}
			return err
		})
	}

	app.log.Info().
		Int("tick_rate", app.cfg.Loop.TickRate).
		Bool("game_mode", app.runner.GameMode()).
		Strs("scripts", app.runner.Active()).
		Msg("demon running")

	if err := app.loop.Run(ctx); err != nil {
		return &ComponentError{Component: "loop", Action: "run", Err: err}
	}
	return nil
}

func (app *Application) goRun(name string, fn func() error) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := fn(); err != nil {
			app.log.Error().Err(err).Str("component", name).Msg("component stopped")
		}
	}()
}

// Shutdown stops every component in reverse initialization order. It is
// safe to call more than once; later calls return nil.
func (app *Application) Shutdown() error {
	var errs []error
	app.shutdownOnce.Do(func() {
		app.shutdown.Store(true)

		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				errs = append(errs, &ComponentError{Component: "watcher", Action: "close", Err: err})
			}
		}
		app.loop.Quit()
		if app.input != nil {
			app.input.Close()
		}
		if err := app.runner.Stop(); err != nil {
			errs = append(errs, &ComponentError{Component: "scripts", Action: "stop", Err: err})
		}
		if dropped := app.bus.Pending(); dropped > 0 {
			app.log.Debug().Int("pending", dropped).Msg("events left undelivered")
		}
		app.log.Info().Msg("demon stopped")
	})
	return errors.Join(errs...)
}

// IsRunning reports whether Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Config returns the configuration the application started with.
func (app *Application) Config() *config.Config {
	return app.cfg
}

// Logger returns the root logger.
func (app *Application) Logger() zerolog.Logger {
	return app.log
}

// LogLevel returns the live log level.
func (app *Application) LogLevel() *logging.Level {
	return app.level
}

// Metrics returns the metric collectors.
func (app *Application) Metrics() *metrics.Metrics {
	return app.metrics
}

// Scripts returns the script runner.
func (app *Application) Scripts() *script.Runner {
	return app.runner
}

// Loop returns the frame loop.
func (app *Application) Loop() *loop.Loop {
	return app.loop
}

// Components returns the initialized components in order.
func (app *Application) Components() []string {
	return append([]string(nil), app.initOrder...)
}
