package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before opening
	OpenTimeout      time.Duration // how long to stay open before probing
	HalfOpenRequests uint32
}

// breakerAdapter fails fast while a remote backend is down. A missing key is
// a normal answer and never trips the breaker.
type breakerAdapter struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker[string]
}

func WithBreaker(next Adapter, cfg BreakerConfig, logger *zap.Logger) Adapter {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &breakerAdapter{next: next, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (b *breakerAdapter) Get(ctx context.Context, key string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *breakerAdapter) Set(ctx context.Context, key, value string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Set(ctx, key, value)
	})
	return err
}

// Ping bypasses the breaker so health checks see the backend itself.
func (b *breakerAdapter) Ping(ctx context.Context) error {
	return Ping(ctx, b.next)
}
