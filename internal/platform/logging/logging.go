// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects log level and output format.
type Config struct {
	Level  string `env:"JIBE_LOG_LEVEL" envDefault:"info"`
	Format string `env:"JIBE_LOG_FORMAT" envDefault:"console"`
}

// New builds a logger writing to out with the configured level and format.
// Unknown levels fall back to info; any format other than "json" is console.
func New(out io.Writer, cfg Config, service string) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	writer := out
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if service = strings.TrimSpace(service); service != "" {
		logger = logger.With().Str("service", service).Logger()
	}
	return logger
}

// Setup builds a logger and installs it as the global zerolog logger.
func Setup(cfg Config, service string) zerolog.Logger {
	logger := New(os.Stdout, cfg, service)
	log.Logger = logger
	return logger
}
