// Package events publishes shipment domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusChangedType is the event type emitted after a status update commits.
const StatusChangedType = "shipment.status_changed"

// StatusChanged is the payload of a status-change event.
type StatusChanged struct {
	Type       string    `json:"type"`
	ShipmentID string    `json:"shipmentId"`
	HistoryID  string    `json:"historyId"`
	PrevStatus string    `json:"prevStatus"`
	NewStatus  string    `json:"newStatus"`
	ChangedBy  string    `json:"changedBy"`
	At         time.Time `json:"at"`
}

// Writer defines the subset of segmentio kafka.Writer we need. This makes the producer testable.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher is the interface used by services to publish events.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// KafkaPublisher is a thin wrapper around a kafka writer implementing Publisher.
type KafkaPublisher struct {
	writer Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to the provided broker/topic.
func NewKafkaPublisher(brokerURL, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokerURL),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w, logger)
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish marshals the value to JSON and writes a kafka message with the given key.
// Keys are shipment IDs so one shipment's events stay ordered in a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("events: marshal failed", zap.String("key", key), zap.Error(err))
		return err
	}
	msg := skafka.Message{Key: []byte(key), Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("events: kafka write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
