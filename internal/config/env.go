package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "DEMON_"

// envSetter applies one environment value to the configuration.
type envSetter func(cfg *Config, value string) error

// envMapping maps environment variables to configuration fields.
var envMapping = map[string]envSetter{
	EnvPrefix + "LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = strings.ToLower(v)
		return nil
	},
	EnvPrefix + "LOG_FORMAT": func(c *Config, v string) error {
		c.Log.Format = strings.ToLower(v)
		return nil
	},
	EnvPrefix + "TICK_RATE": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Loop.TickRate = n
		return nil
	},
	EnvPrefix + "STOP_ON_ERROR": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Loop.StopOnError = b
		return nil
	},
	EnvPrefix + "SCRIPTS_DIR": func(c *Config, v string) error {
		c.Scripts.Dir = v
		return nil
	},
	EnvPrefix + "GAME_MODE": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Scripts.GameMode = b
		return nil
	},
	EnvPrefix + "INPUT_BACKEND": func(c *Config, v string) error {
		c.Input.Backend = strings.ToLower(v)
		return nil
	},
	EnvPrefix + "METRICS_ENABLED": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Metrics.Enabled = b
		return nil
	},
	EnvPrefix + "METRICS_ADDR": func(c *Config, v string) error {
		c.Metrics.Addr = v
		return nil
	},
}

// EnvVars returns the sorted names of the supported environment overrides.
func EnvVars() []string {
	return slices.Sorted(maps.Keys(envMapping))
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, name := range EnvVars() {
		set := envMapping[name]
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("environment %s=%q: %w", name, v, err)
		}
	}
	return nil
}
