// Package jibe parses jibe command flags and starts the game runtime.
package jibe

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/jibe/internal/platform/cmd"
	"github.com/louisbranch/jibe/internal/platform/logging"
	server "github.com/louisbranch/jibe/internal/services/jibe/app"
	"github.com/louisbranch/jibe/internal/services/jibe/game"
)

// Config holds jibe command configuration.
type Config struct {
	Port               int           `env:"JIBE_PORT" envDefault:"8095"`
	Addr               string        `env:"JIBE_ADDR"`
	DBPath             string        `env:"JIBE_DB_PATH" envDefault:"data/jibe.db"`
	HMACKey            string        `env:"JIBE_AUTH_HMAC_KEY"`
	WinThreshold       int           `env:"JIBE_WIN_THRESHOLD" envDefault:"50"`
	RoundWords         int           `env:"JIBE_ROUND_WORDS" envDefault:"51"`
	WatcherPoll        time.Duration `env:"JIBE_WATCHER_POLL_INTERVAL" envDefault:"250ms"`
	WatcherBatch       int           `env:"JIBE_WATCHER_BATCH_SIZE" envDefault:"32"`
	WatcherConcurrency int           `env:"JIBE_WATCHER_CONCURRENCY" envDefault:"4"`
	RequeueDead        bool          `env:"JIBE_REQUEUE_DEAD"`
	Logging            logging.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The jibe gRPC server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The jibe gRPC listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the jibe SQLite database")
	fs.IntVar(&cfg.WinThreshold, "win-threshold", cfg.WinThreshold, "Score a player must reach to be eligible to win")
	fs.IntVar(&cfg.RoundWords, "round-words", cfg.RoundWords, "Words sampled per session")
	fs.BoolVar(&cfg.RequeueDead, "requeue-dead", cfg.RequeueDead, "Retry dead-lettered turn writes at startup")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig converts command configuration into runtime settings.
func (c Config) ServerConfig() server.Config {
	addr := c.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", c.Port)
	}
	return server.Config{
		Addr:    addr,
		DBPath:  c.DBPath,
		HMACKey: c.HMACKey,
		Game: game.Config{
			WinThreshold: c.WinThreshold,
			RoundWords:   c.RoundWords,
		},
		WatcherPoll:        c.WatcherPoll,
		WatcherBatch:       c.WatcherBatch,
		WatcherConcurrency: c.WatcherConcurrency,
		RequeueDead:        c.RequeueDead,
	}
}

// Run starts the jibe gRPC service.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.Setup(cfg.Logging, entrypoint.ServiceJibe)
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceJibe, func(ctx context.Context) error {
		return server.Run(ctx, cfg.ServerConfig(), logger)
	})
}
