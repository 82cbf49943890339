package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_cart/shopping/internal/cart"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CheckoutCompletedEvent is the part of the checkout outbox payload the cart
// cares about. UserID carries the cart session id.
type CheckoutCompletedEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Poller empties carts whose checkout has completed.
type Poller struct {
	reader  messageReader
	carts   *cart.Registry
	logger  *zap.Logger
	backoff time.Duration
}

func NewPoller(carts *cart.Registry, logger *zap.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		reader:  reader,
		carts:   carts,
		logger:  logger,
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting checkout poller")
	for {
		if ctx.Err() != nil {
			p.logger.Info("stopping checkout poller")
			return
		}
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("failed to read checkout message", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

// poll handles one message. Only read errors are returned; bad payloads are
// logged and skipped.
func (p *Poller) poll(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing checkout message", zap.Error(err))
		return nil
	}
	if event.UserID == "" {
		p.logger.Warn("checkout message without user_id", zap.String("checkout_id", event.CheckoutID))
		return nil
	}

	if n := p.carts.Get(ctx, event.UserID).Clear(ctx); cart.Failed(n) {
		p.logger.Warn("could not clear cart after checkout",
			zap.String("cart_id", event.UserID),
			zap.String("checkout_id", event.CheckoutID),
			zap.String("reason", n.Text),
		)
		return nil
	}
	p.logger.Info("cart cleared after checkout",
		zap.String("cart_id", event.UserID),
		zap.String("checkout_id", event.CheckoutID),
	)
	return nil
}
