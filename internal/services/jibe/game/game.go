// Package game orchestrates jibe sessions: who plays, which word each round
// uses, when a round stops taking answers, and who wins.
//
// Every mutation is one storage transaction, so concurrent callers only ever
// observe whole operations.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/jibe/internal/platform/random"
	"github.com/louisbranch/jibe/internal/platform/requestctx"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/sampler"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

const tracerName = "github.com/louisbranch/jibe/internal/services/jibe/game"

const (
	// DefaultRoundWords is how many rounds' words a session samples up front.
	DefaultRoundWords = 51
	// DefaultCodeAttempts bounds session code redraws on collision.
	DefaultCodeAttempts = 8
)

// Config holds the game rules.
type Config struct {
	WinThreshold int
	RoundWords   int
	CodeAttempts int
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		WinThreshold: domain.DefaultWinThreshold,
		RoundWords:   DefaultRoundWords,
		CodeAttempts: DefaultCodeAttempts,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.WinThreshold <= 0 {
		c.WinThreshold = defaults.WinThreshold
	}
	if c.RoundWords <= 0 {
		c.RoundWords = defaults.RoundWords
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = defaults.CodeAttempts
	}
	return c
}

// Option customizes engine dependencies.
type Option func(*deps)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *deps) { d.logger = logger }
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *deps) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithRand sets the random source for word sampling.
func WithRand(rng sampler.Source) Option {
	return func(d *deps) {
		if rng != nil {
			d.rng = rng
		}
	}
}

// WithCodeGenerator overrides session code generation.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(d *deps) {
		if gen != nil {
			d.newCode = gen
		}
	}
}

type deps struct {
	store   storage.Store
	cfg     Config
	now     func() time.Time
	logger  zerolog.Logger
	tracer  trace.Tracer
	newCode func() (string, error)

	rngMu sync.Mutex
	rng   sampler.Source
}

// Game bundles the session components sharing one store.
type Game struct {
	Registry *Registry
	Rounds   *RoundEngine
	Scoring  *ScoringEngine
	Watcher  *Watcher
}

// New wires the game components. feed may be nil when the caller only
// invokes the watcher handler directly.
func New(store storage.Store, feed storage.TurnWriteFeed, cfg Config, opts ...Option) (*Game, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	d := &deps{
		store:   store,
		cfg:     cfg.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
		newCode: domain.NewSessionCode,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		rng, err := random.NewRand()
		if err != nil {
			return nil, fmt.Errorf("seed word sampler: %w", err)
		}
		d.rng = rng
	}

	rounds := &RoundEngine{deps: d}
	return &Game{
		Registry: &Registry{deps: d, rounds: rounds},
		Rounds:   rounds,
		Scoring:  &ScoringEngine{deps: d, rounds: rounds},
		Watcher:  newWatcher(d, feed),
	}, nil
}

func (d *deps) sample(poolSize, count int) ([]int, error) {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return sampler.Sample(d.rng, poolSize, count)
}

func (d *deps) log(ctx context.Context) *zerolog.Logger {
	logger := d.logger
	if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	return &logger
}

func (d *deps) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
