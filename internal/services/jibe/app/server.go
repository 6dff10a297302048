// Package server wires the jibe runtime: storage, game engines, the turn
// watcher loop and the gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/jibe/internal/platform/requestctx"
	"github.com/louisbranch/jibe/internal/platform/timeouts"
	jibeservice "github.com/louisbranch/jibe/internal/services/jibe/api/grpc/jibe"
	"github.com/louisbranch/jibe/internal/services/jibe/api/grpc/metadata"
	"github.com/louisbranch/jibe/internal/services/jibe/game"
	jibesqlite "github.com/louisbranch/jibe/internal/services/jibe/storage/sqlite"
)

// Config holds the runtime settings the server needs.
type Config struct {
	Addr               string
	DBPath             string
	HMACKey            string
	Game               game.Config
	WatcherPoll        time.Duration
	WatcherBatch       int
	WatcherConcurrency int
	// RequeueDead moves dead-lettered turn writes back to pending at startup.
	RequeueDead bool
}

const requeueDeadLimit = 1000

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join("data", "jibe.db")
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8095"
	}
	return c
}

// Server hosts the jibe gRPC API, the turn watcher and the store.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *jibesqlite.Store
	game       *game.Game
	logger     zerolog.Logger
}

// New creates a configured jibe server.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Server, error) {
	cfg = cfg.withDefaults()

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	words, err := store.CountWords(ctx)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("count words: %w", err)
	}
	if words == 0 {
		logger.Warn().Str("db_path", cfg.DBPath).Msg("word catalog is empty; run the seed command before creating sessions")
	}

	if err := recoverOutbox(ctx, store, cfg.RequeueDead, logger); err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	g, err := game.New(store, store, cfg.Game, game.WithLogger(logger))
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build game: %w", err)
	}
	g.Watcher.Configure(cfg.WatcherPoll, cfg.WatcherBatch, cfg.WatcherConcurrency)

	resolver := metadata.NewResolver(metadata.Config{HMACKey: []byte(cfg.HMACKey)})
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			resolver.UnaryServerInterceptor(),
			loggingInterceptor(logger),
		),
	)
	healthServer := health.NewServer()
	jibeservice.RegisterGameServiceServer(grpcServer, jibeservice.NewService(g, logger))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(jibeservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		game:       g,
		logger:     logger,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a jibe server until context cancellation.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	server, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the gRPC server and the turn watcher until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	watchCtx, stopWatcher := context.WithCancel(ctx)
	defer stopWatcher()
	watcherDone := make(chan error, 1)
	go func() {
		watcherDone <- s.game.Watcher.Run(watchCtx)
	}()

	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("jibe server listening")
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.gracefulStop()
		err = <-serveErr
	case err = <-serveErr:
	case werr := <-watcherDone:
		s.grpcServer.Stop()
		<-serveErr
		if werr != nil && !errors.Is(werr, context.Canceled) {
			return fmt.Errorf("turn watcher: %w", werr)
		}
		return nil
	}

	stopWatcher()
	select {
	case <-watcherDone:
	case <-time.After(timeouts.Shutdown):
		s.logger.Warn().Msg("turn watcher did not stop in time")
	}
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}

func (s *Server) gracefulStop() {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeouts.Shutdown):
		s.logger.Warn().Msg("graceful stop timed out; forcing")
		s.grpcServer.Stop()
		<-done
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error().Err(err).Msg("close jibe store")
		}
	}
}

func openStore(ctx context.Context, path string) (*jibesqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	defer cancel()
	store, err := jibesqlite.Open(openCtx, path)
	if err != nil {
		return nil, fmt.Errorf("open jibe sqlite store: %w", err)
	}
	return store, nil
}

// recoverOutbox reports turn-write backlog and optionally revives dead rows.
func recoverOutbox(ctx context.Context, store *jibesqlite.Store, requeueDead bool, logger zerolog.Logger) error {
	summary, err := store.TurnWriteSummary(ctx)
	if err != nil {
		return fmt.Errorf("turn write summary: %w", err)
	}
	logger.Info().
		Int("pending", summary.PendingCount).
		Int("processing", summary.ProcessingCount).
		Int("failed", summary.FailedCount).
		Int("dead", summary.DeadCount).
		Msg("turn write outbox")
	if summary.DeadCount == 0 {
		return nil
	}
	if !requeueDead {
		logger.Warn().Int("dead", summary.DeadCount).Msg("dead turn writes present; restart with -requeue-dead to retry them")
		return nil
	}
	requeued, err := store.RequeueDeadTurnWrites(ctx, requeueDeadLimit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("requeue dead turn writes: %w", err)
	}
	logger.Info().Int("requeued", requeued).Msg("dead turn writes requeued")
	return nil
}

func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		event := logger.Debug()
		if err != nil {
			event = logger.Info()
		}
		event.
			Str("method", info.FullMethod).
			Str("request_id", requestctx.RequestIDFromContext(ctx)).
			Str("user_id", requestctx.UserIDFromContext(ctx)).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc call")
		return resp, err
	}
}
