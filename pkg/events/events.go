// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Shopify/sarama"
	"github.com/example/foodcart/pkg/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	OrderCreated           = "order.created"
	OrderStatusChanged     = "order.status_changed"
	OrderRestaurantChanged = "order.restaurant_assigned"
	OrderItemsChanged      = "order.items_changed"
)

type Event struct {
	Type         string          `json:"type"`
	OrderID      uint            `json:"order_id"`
	Status       string          `json:"status,omitempty"`
	RestaurantID *uint           `json:"restaurant_id,omitempty"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Timestamp    int64           `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers
// are configured.
func NewPublisher(cfg *config.KafkaConfig, logger *zap.Logger) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		logger.Info("Kafka brokers not configured, order events disabled")
		return NopPublisher{}, nil
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisher(producer, cfg.Topic, logger), nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends the event keyed by order ID so that one order's events stay
// on one partition.
func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.Debug("Event published",
		zap.String("type", event.Type),
		zap.Uint("order_id", event.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
