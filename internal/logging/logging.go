// Package logging builds the zerolog loggers used across Demon.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/config"
)

// ParseLevel parses a level name. Unknown names yield info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level is the process-wide minimum level. It drives zerolog's global
// level, so disabled events are dropped before any fields are encoded and
// changes apply to every logger at once.
type Level struct {
	v atomic.Int32
}

// NewLevel creates a Level set to l.
func NewLevel(l zerolog.Level) *Level {
	lv := &Level{}
	lv.Set(l)
	return lv
}

// Set changes the minimum level.
func (l *Level) Set(level zerolog.Level) {
	l.v.Store(int32(level))
	zerolog.SetGlobalLevel(level)
}

// Get returns the minimum level.
func (l *Level) Get() zerolog.Level {
	return zerolog.Level(l.v.Load())
}

// Enabled reports whether events at level are written.
func (l *Level) Enabled(level zerolog.Level) bool {
	return level >= l.Get()
}

// New creates a logger writing to w (stderr when nil) in the configured
// format. The returned Level controls filtering after construction.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, *Level) {
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := NewLevel(ParseLevel(cfg.Level))
	logger := zerolog.New(w).
		With().
		Timestamp().
		Logger()
	return logger, level
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
