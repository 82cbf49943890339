package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name clients pass to grpc.health.v1.Health/Check.
const ServiceName = "shopping.cart"

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// Server exposes the grpc health protocol and keeps the serving status in
// step with a periodic dependency check.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	check    CheckFunc
	interval time.Duration
	logger   *zap.Logger
}

func NewServer(check CheckFunc, interval time.Duration, logger *zap.Logger) *Server {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(gs, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(gs)

	return &Server{
		grpc:     gs,
		health:   hs,
		check:    check,
		interval: interval,
		logger:   logger,
	}
}

// Serve listens on port until Stop is called.
func (s *Server) Serve(port string) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("grpc health server listening", zap.String("port", port))
	return s.grpc.Serve(lis)
}

// Watch runs the check every interval until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.check(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
