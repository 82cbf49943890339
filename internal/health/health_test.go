package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func status(t *testing.T, s *Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestNewServer_StartsNotServing(t *testing.T) {
	s := NewServer(func(context.Context) error { return nil }, time.Second, zap.NewNop())

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s))
}

func TestProbe(t *testing.T) {
	var failing atomic.Bool
	s := NewServer(func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	}, time.Second, zap.NewNop())

	s.probe(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, s))

	failing.Store(true)
	s.probe(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s))
}

func TestWatch(t *testing.T) {
	var calls atomic.Int32
	s := NewServer(func(context.Context) error {
		calls.Add(1)
		return nil
	}, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Watch(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, s))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}
}
