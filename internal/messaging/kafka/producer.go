// Package kafka forwards domain events from the in-process bus to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/frahmantamala/credit-payments/internal/core/events"
)

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return producer, nil
}

type Forwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewForwarder(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Register subscribes the forwarder to every payment event type.
func (f *Forwarder) Register(bus *events.EventBus) {
	for _, eventType := range events.AllEventTypes {
		bus.Subscribe(eventType, f.Handle)
	}
}

// Handle publishes one event keyed by its order id, so an order's events share
// a partition. The bus runs handlers concurrently, so send order is not event
// order; consumers dedupe on the event_id header.
func (f *Forwarder) Handle(ctx context.Context, event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType())},
			{Key: []byte("event_id"), Value: []byte(event.EventID())},
		},
	}
	if key := orderKey(event); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	carrier := headerCarrier(msg.Headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = []sarama.RecordHeader(carrier)

	partition, offset, err := f.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	traceID := ""
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
	}

	f.logger.Info("event forwarded to kafka",
		"trace_id", traceID,
		"topic", f.topic,
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"partition", partition,
		"offset", offset)
	return nil
}

func orderKey(event events.Event) string {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := data["order_id"].(string)
	return id
}

// headerCarrier adapts Kafka record headers to the otel TextMapCarrier.
type headerCarrier []sarama.RecordHeader

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
