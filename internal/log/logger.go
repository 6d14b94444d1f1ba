// Package log configures the process-wide zerolog logger.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", ...; empty falls back to LOG_LEVEL
	Output  io.Writer // defaults to os.Stderr so stdio transports keep stdout
	Service string
	Pretty  bool // human-readable console output
}

var (
	mu   sync.RWMutex
	base = newLogger(Config{})
)

// Configure replaces the global logger. It is safe to call more than once;
// the CLI calls it again after flags and config files are parsed.
func Configure(cfg Config) {
	l := newLogger(cfg)
	mu.Lock()
	base = l
	mu.Unlock()
}

func newLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	lvl := cfg.Level
	if lvl == "" {
		lvl = os.Getenv("LOG_LEVEL")
	}
	if lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	service := cfg.Service
	if service == "" {
		service = "querybee"
	}

	return zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
