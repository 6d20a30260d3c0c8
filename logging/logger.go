// Package logging builds the zerolog loggers used throughout injgen.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New creates a logger tagged with component, writing to the output named
// in cfg.
func New(cfg Config, component string) zerolog.Logger {
	return NewWithWriter(cfg, outputWriter(cfg.Output), component)
}

// NewWithWriter is like [New], but writes to w.
func NewWithWriter(cfg Config, w io.Writer, component string) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}
	}

	zc := zerolog.New(w).Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if component != "" {
		zc = zc.Str(FieldComponent, component)
	}
	return zc.Logger()
}

// Component derives a logger for a sub-component.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}
