package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON, keyed by cart so that one cart's
// notifications stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaSink(logger *zap.Logger, topic string, brokers ...string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
	}
	return &KafkaSink{writer: writer, logger: logger}
}

func (k *KafkaSink) Notify(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		k.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.CartID),
		Value: payload,
	})
	if err != nil {
		k.logger.Warn("failed to publish notification",
			zap.String("cart_id", e.CartID),
			zap.Error(err),
		)
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
