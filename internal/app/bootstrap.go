package app

import (
	"time"

	"github.com/dshills/demon/internal/config"
	"github.com/dshills/demon/internal/config/watcher"
	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
	"github.com/dshills/demon/internal/input"
	"github.com/dshills/demon/internal/logging"
	"github.com/dshills/demon/internal/loop"
	"github.com/dshills/demon/internal/metrics"
	"github.com/dshills/demon/internal/script"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	loadOpts  []config.LoadOption
	initOrder []string
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{"config", b.initConfig},
		{"logger", b.initLogger},
		{"bus", b.initBus},
		{"metrics", b.initMetrics},
		{"scripts", b.initScripts},
		{"input", b.initInput},
		{"loop", b.initLoop},
		{"watcher", b.initWatcher},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return err
		}
		b.initOrder = append(b.initOrder, step.name)
	}

	b.app.initOrder = b.initOrder
	b.app.log.Debug().Strs("components", b.initOrder).Msg("bootstrap complete")
	return nil
}

// initConfig loads the file and environment, then applies command-line
// overrides on top.
func (b *bootstrapper) initConfig() error {
	if b.opts.EnvFile != "" {
		b.loadOpts = append(b.loadOpts, config.WithEnvFile(b.opts.EnvFile))
	}
	cfg, err := config.Load(b.opts.ConfigPath, b.loadOpts...)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}

	if b.opts.LogLevel != "" {
		cfg.Log.Level = b.opts.LogLevel
	}
	if b.opts.ScriptsDir != "" {
		cfg.Scripts.Dir = b.opts.ScriptsDir
	}
	if b.opts.Headless {
		cfg.Input.Backend = config.BackendNone
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}

	b.app.cfg = cfg
	return nil
}

func (b *bootstrapper) initLogger() error {
	b.app.log, b.app.level = logging.New(b.app.cfg.Log, b.opts.LogOutput)
	return nil
}

// initBus uses the process-wide bus unless one was supplied.
func (b *bootstrapper) initBus() error {
	if b.opts.Bus != nil {
		b.app.bus = b.opts.Bus
		return nil
	}
	b.app.bus = event.InitDefault(event.WithLogger(logging.Component(b.app.log, "event")))
	return nil
}

func (b *bootstrapper) initMetrics() error {
	b.app.metrics = metrics.New(b.app.bus)
	return nil
}

func (b *bootstrapper) initScripts() error {
	cfg := b.app.cfg
	m := b.app.metrics

	runner := script.NewRunner(b.app.bus,
		script.WithLogger(logging.Component(b.app.log, "script")),
		script.WithGameMode(cfg.Scripts.GameMode),
		script.WithErrorObserver(func(name string, _ error) {
			m.ScriptErrors.WithLabelValues(name).Inc()
		}),
	)
	runner.Input().BindAll(cfg.Bindings)

	scripts, err := script.Load(cfg.Scripts)
	if err != nil {
		return &InitError{Component: "scripts", Err: err}
	}
	for _, s := range scripts {
		runner.Add(s)
	}

	b.app.runner = runner
	return nil
}

func (b *bootstrapper) initInput() error {
	cfg := b.app.cfg.Input
	if cfg.Backend == config.BackendNone {
		return nil
	}

	m := b.app.metrics
	opts := []input.Option{
		input.WithLogger(logging.Component(b.app.log, "input")),
		input.WithMouse(cfg.Mouse),
		input.WithMouseMoveRate(cfg.MouseMoveRate),
		input.WithKeyRelease(time.Duration(cfg.KeyReleaseMs)*time.Millisecond),
		input.WithObserver(func(k event.Kind) {
			m.InputEvents.WithLabelValues(k.String()).Inc()
		}),
	}

	var src *input.Source
	if b.opts.Screen != nil {
		src = input.New(b.opts.Screen, b.app.bus, opts...)
	} else {
		var err error
		if src, err = input.NewTerminal(b.app.bus, opts...); err != nil {
			return &InitError{Component: "input", Err: err}
		}
	}
	if err := src.Init(); err != nil {
		return &InitError{Component: "input", Err: err}
	}
	b.app.input = src
	return nil
}

func (b *bootstrapper) initLoop() error {
	cfg := b.app.cfg.Loop
	l := loop.New(b.app.bus,
		loop.WithTickRate(cfg.TickRate),
		loop.WithStopOnError(cfg.StopOnError),
		loop.WithLogger(logging.Component(b.app.log, "loop")),
		loop.WithFrameObserver(b.app.metrics.ObserveFrame),
	)
	l.Add(b.app.runner)
	b.app.loop = l
	return nil
}

// initWatcher reloads the log level when the config file changes and
// queues ConfigReloaded for scripts.
func (b *bootstrapper) initWatcher() error {
	if b.opts.ConfigPath == "" || !b.opts.Watch {
		return nil
	}

	app := b.app
	log := logging.Component(app.log, "config")
	w, err := watcher.New(b.opts.ConfigPath, func(cfg *config.Config) {
		if err := app.bus.Queue(&events.ConfigReloaded{Path: b.opts.ConfigPath}); err != nil {
			log.Warn().Err(err).Msg("queue reload event")
		}
		if b.opts.LogLevel == "" {
			app.level.Set(logging.ParseLevel(cfg.Log.Level))
		}
		log.Info().Str("path", b.opts.ConfigPath).Str("level", cfg.Log.Level).Msg("config reloaded")
	}, watcher.WithErrorHandler(func(err error) {
		log.Warn().Err(err).Msg("config reload failed, keeping previous configuration")
	}), watcher.WithLoader(func(path string) (*config.Config, error) {
		return config.Load(path, b.loadOpts...)
	}))
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	app.watcher = w
	return nil
}

// cleanup releases components in reverse initialization order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "input":
			if b.app.input != nil {
				b.app.input.Close()
			}
		case "watcher":
			if b.app.watcher != nil {
				b.app.watcher.Close()
			}
		}
	}
}
