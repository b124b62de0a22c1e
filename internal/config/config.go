// Package config loads Demon configuration from TOML or YAML files, a
// .env file and DEMON_* environment variables.
//
// Precedence, lowest first:
//
//	built-in defaults < config file < .env file < process environment
//
// Variables already set in the process environment win over .env entries.
package config

import (
	"fmt"
	"slices"
	"strings"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig     `toml:"log" yaml:"log"`
	Loop     LoopConfig    `toml:"loop" yaml:"loop"`
	Scripts  ScriptsConfig `toml:"scripts" yaml:"scripts"`
	Input    InputConfig   `toml:"input" yaml:"input"`
	Metrics  MetricsConfig `toml:"metrics" yaml:"metrics"`
	Bindings []Binding     `toml:"bindings" yaml:"bindings"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `toml:"format" yaml:"format"`
}

// LoopConfig configures the frame loop.
type LoopConfig struct {
	// TickRate is the number of frames per second.
	TickRate int `toml:"tick_rate" yaml:"tick_rate"`
	// StopOnError stops the loop when a queued event fails.
	StopOnError bool `toml:"stop_on_error" yaml:"stop_on_error"`
}

// ScriptsConfig configures runtime scripts.
type ScriptsConfig struct {
	Dir      string   `toml:"dir" yaml:"dir"`
	Files    []string `toml:"files" yaml:"files"`
	GameMode bool     `toml:"game_mode" yaml:"game_mode"`
}

// InputConfig configures the terminal input source.
type InputConfig struct {
	// Backend is "tcell" or "none".
	Backend string `toml:"backend" yaml:"backend"`
	Mouse   bool   `toml:"mouse" yaml:"mouse"`
	// MouseMoveRate caps mouse motion events per second. Zero disables the cap.
	MouseMoveRate float64 `toml:"mouse_move_rate" yaml:"mouse_move_rate"`
	// KeyReleaseMs is how long a key must go without repeating before a
	// release is reported. Terminals send no key-up. Zero disables releases.
	KeyReleaseMs int `toml:"key_release_ms" yaml:"key_release_ms"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

// Binding maps an input event name to a script action.
type Binding struct {
	// Event is an input-map name such as "w", "w-up" or "ctrl-s".
	Event string `toml:"event" yaml:"event"`
	// Action is the action name scripts query.
	Action string `toml:"action" yaml:"action"`
	// Pressed is the action state the event sets.
	Pressed bool `toml:"pressed" yaml:"pressed"`
}

// Input backends.
const (
	BackendTcell = "tcell"
	BackendNone  = "none"
)

var (
	validLevels   = []string{"trace", "debug", "info", "warn", "error"}
	validFormats  = []string{"console", "json"}
	validBackends = []string{BackendTcell, BackendNone}
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Loop: LoopConfig{
			TickRate: 60,
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Input: InputConfig{
			Backend:       BackendTcell,
			Mouse:         true,
			MouseMoveRate: 30,
			KeyReleaseMs:  500,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		return &ValidationError{Field: "log.level", Value: c.Log.Level, Message: "must be one of " + strings.Join(validLevels, ", ")}
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return &ValidationError{Field: "log.format", Value: c.Log.Format, Message: "must be console or json"}
	}
	if c.Loop.TickRate <= 0 || c.Loop.TickRate > 1000 {
		return &ValidationError{Field: "loop.tick_rate", Value: c.Loop.TickRate, Message: "must be between 1 and 1000"}
	}
	if !slices.Contains(validBackends, c.Input.Backend) {
		return &ValidationError{Field: "input.backend", Value: c.Input.Backend, Message: "must be tcell or none"}
	}
	if c.Input.MouseMoveRate < 0 {
		return &ValidationError{Field: "input.mouse_move_rate", Value: c.Input.MouseMoveRate, Message: "must not be negative"}
	}
	if c.Input.KeyReleaseMs < 0 {
		return &ValidationError{Field: "input.key_release_ms", Value: c.Input.KeyReleaseMs, Message: "must not be negative"}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return &ValidationError{Field: "metrics.addr", Value: c.Metrics.Addr, Message: "required when metrics are enabled"}
	}
	for i, b := range c.Bindings {
		if b.Event == "" || b.Action == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("bindings[%d]", i),
				Value:   b,
				Message: "event and action are required",
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Scripts.Files = slices.Clone(c.Scripts.Files)
	out.Bindings = slices.Clone(c.Bindings)
	return &out
}
