package notify

import (
	"context"
	"time"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"go.uber.org/zap"
)

// Event is a notification together with the cart that produced it.
type Event struct {
	CartID       string              `json:"cart_id"`
	Notification domain.Notification `json:"notification"`
	At           time.Time           `json:"at"`
}

// Sink receives status messages after each cart mutation. Delivery is best
// effort: a sink never fails the mutation that produced the event.
type Sink interface {
	Notify(ctx context.Context, e Event)
}

type discard struct{}

func (discard) Notify(context.Context, Event) {}

// Discard drops every event.
var Discard Sink = discard{}

type multi []Sink

func (m multi) Notify(ctx context.Context, e Event) {
	for _, s := range m {
		s.Notify(ctx, e)
	}
}

// Multi fans an event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Notify(_ context.Context, e Event) {
	l.logger.Info("cart notification",
		zap.String("cart_id", e.CartID),
		zap.String("kind", string(e.Notification.Kind)),
		zap.String("message", e.Notification.Text),
	)
}
