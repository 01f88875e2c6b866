// Package grpc exposes the standard gRPC health service for the membership
// server.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"meeting-gate/internal/api/grpc/interceptor"
	"meeting-gate/internal/logger"
)

// ServiceName is the health entry for the membership API. The empty name
// reports the server as a whole.
const ServiceName = "meetinggate.v1.Membership"

const checkTimeout = 2 * time.Second

// StoreCheck reports whether the membership store answers.
type StoreCheck func(ctx context.Context) error

// HealthReporter keeps the health service in step with the store check.
type HealthReporter struct {
	server *health.Server
	ping   StoreCheck
}

// NewHealthReporter starts NOT_SERVING until the first check. A nil check
// always reports SERVING.
func NewHealthReporter(ping StoreCheck) *HealthReporter {
	h := &HealthReporter{server: health.NewServer(), ping: ping}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthReporter) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// Check runs the check once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			logger.Warn("Health ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

// Run checks the store on every interval tick until ctx is done, then marks the
// server as shutting down.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds a gRPC server carrying the health service and reflection
// for grpcurl.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	healthpb.RegisterHealthServer(s, reporter.server)
	reflection.Register(s)
	return s
}
