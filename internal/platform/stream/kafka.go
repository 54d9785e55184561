// Package stream tees live events into Kafka for downstream consumers
// (replay, analytics). The tee is strictly best-effort: a broker outage never
// blocks or fails an in-process broadcast.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"pitchside/internal/live"
)

// KafkaSink publishes events asynchronously, keyed by topic so that events
// for one match or tournament land on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafkaSink connects a producer to the given brokers. An empty broker list
// disables the sink and returns nil.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, err
	}

	return &KafkaSink{
		client: client,
		logger: logger.With("component", "stream.kafka"),
	}, nil
}

// Publish enqueues the event without waiting for the broker. Delivery
// failures are logged in the produce callback.
func (s *KafkaSink) Publish(ctx context.Context, event live.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WarnContext(ctx, "event marshal failed", "event", event.Name, "error", err.Error())
		return
	}

	record := &kgo.Record{
		Key:   []byte(event.Topic),
		Value: payload,
	}
	s.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("event publish failed",
				"event", event.Name,
				"topic", string(event.Topic),
				"error", err.Error(),
			)
		}
	})
}

// Close flushes buffered records and releases the producer.
func (s *KafkaSink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return err
	}
	s.client.Close()
	return nil
}
