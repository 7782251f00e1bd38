package kafka

import (
	"context"
	"encoding/json"

	"checkout-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ProducerAPI is the publishing surface the services depend on, so tests can
// swap in a recorder.
type ProducerAPI interface {
	PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error
	PublishOrderCancelled(ctx context.Context, event models.OrderCancelledEvent) error
	PublishPaymentStatusChanged(ctx context.Context, event models.PaymentStatusChangedEvent) error
	Close() error
}

// Producer publishes checkout lifecycle events to a single Kafka topic,
// keyed by order ID so one order's events stay in partition order.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{writer: writer, topic: topic, logger: logger}
}

func (p *Producer) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	return p.publish(ctx, "order.created", event.OrderID, event)
}

func (p *Producer) PublishOrderCancelled(ctx context.Context, event models.OrderCancelledEvent) error {
	return p.publish(ctx, "order.cancelled", event.OrderID, event)
}

func (p *Producer) PublishPaymentStatusChanged(ctx context.Context, event models.PaymentStatusChangedEvent) error {
	return p.publish(ctx, "payment.status_changed", event.OrderID, event)
}

func (p *Producer) publish(ctx context.Context, eventType, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("kafka publish failed",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("event published", zap.String("event_type", eventType), zap.String("key", key))
	return nil
}

func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer", zap.String("topic", p.topic))
	return p.writer.Close()
}
