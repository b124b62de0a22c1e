package event

import "github.com/rs/zerolog"

// busConfig contains bus configuration.
type busConfig struct {
	logger zerolog.Logger
	source string
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: zerolog.Nop(),
		source: "bus",
	}
}

// Option configures a Bus.
type Option func(*busConfig)

// WithLogger sets the logger used for bus diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithSource sets the source stamped on events that do not name one.
func WithSource(source string) Option {
	return func(c *busConfig) {
		if source != "" {
			c.source = source
		}
	}
}
