// Package main is the entry point for the Demon runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/demon/internal/app"
	"github.com/dshills/demon/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, logFile, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if logFile != nil {
		defer logFile.Close()
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags returns the application options and the log file to close on
// exit, if one was opened.
func parseFlags() (app.Options, io.Closer, error) {
	opts := app.Options{Watch: true}
	var (
		logPath     string
		showVersion bool
		showHelp    bool
		showEnv     bool
	)

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.EnvFile, "env-file", ".env", "Path to .env file (ignored if missing)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flag.StringVar(&logPath, "log-file", "", "Write logs to this file instead of stderr")
	flag.StringVar(&opts.ScriptsDir, "scripts", "", "Directory of Lua scripts")
	flag.BoolVar(&opts.Headless, "headless", false, "Run without terminal input")
	flag.BoolVar(&opts.Watch, "watch", true, "Reload the configuration file when it changes")
	flag.BoolVar(&showEnv, "env", false, "List supported environment variables")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Demon - event-driven game runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: demon [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  demon -c demon.toml            Run with a config file\n")
		fmt.Fprintf(os.Stderr, "  demon -scripts ./game          Load scripts from ./game\n")
		fmt.Fprintf(os.Stderr, "  demon -headless -log-level debug\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Demon %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if showEnv {
		for _, name := range config.EnvVars() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	// Validate log level
	switch opts.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return opts, nil, fmt.Errorf("invalid log level %q (must be trace, debug, info, warn, or error)", opts.LogLevel)
	}

	if logPath == "" {
		return opts, nil, nil
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return opts, nil, fmt.Errorf("opening log file: %w", err)
	}
	opts.LogOutput = f
	return opts, f, nil
}
