package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCheckTimeout    = time.Second
	healthInitialInterval = 100 * time.Millisecond
	healthMaxInterval     = time.Second
)

var errNotServing = errors.New("service is not serving")

// WaitForHealth blocks until the health check for service reports SERVING or ctx ends.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logger zerolog.Logger) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = healthInitialInterval
	policy.MaxInterval = healthMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return struct{}{}, err
		}
		if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return struct{}{}, fmt.Errorf("%w: %s", errNotServing, response.GetStatus())
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().Err(err).Str("service", service).Dur("retry_in", next).Msg("waiting for gRPC health")
		}),
	)
	if err != nil {
		return fmt.Errorf("wait for gRPC health: %w", err)
	}
	return nil
}
