package kafka

import (
	"context"
	"encoding/json"

	"github.com/peandrade/ticketflow-sub001/models"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OrderEventProducer publishes order lifecycle events to Kafka.
type OrderEventProducer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewOrderEventProducer(brokers []string, topic string, logger *zap.Logger) *OrderEventProducer {
	w := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.LeastBytes{},
	}
	logger.Info("Kafka order event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &OrderEventProducer{writer: w, logger: logger}
}

func (p *OrderEventProducer) Publish(ctx context.Context, event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(event.OrderID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish order event",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
