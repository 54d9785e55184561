package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pitchside/pkg/domain"
)

const tracerName = "pitchside/internal/live"

// EventSink receives a best-effort copy of every emitted event, e.g. the
// Kafka tee. Implementations must not block.
type EventSink interface {
	Publish(ctx context.Context, event Event)
}

// Dispatcher is the public entry point collaborators use to announce domain
// events. It is constructed once at startup and passed by reference to every
// component that emits; there is no package-level instance.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	sink     EventSink

	emitted *prometheus.CounterVec
	dropped prometheus.Counter
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithEventSink tees every emitted event into sink.
func WithEventSink(sink EventSink) DispatcherOption {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithDispatcherMetrics wires the emit counters.
func WithDispatcherMetrics(emitted *prometheus.CounterVec, dropped prometheus.Counter) DispatcherOption {
	return func(d *Dispatcher) {
		d.emitted = emitted
		d.dropped = dropped
	}
}

// NewDispatcher builds a dispatcher fanning out through the given registry.
func NewDispatcher(registry *Registry, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "live.dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Emit pushes an event to every connection subscribed to topic at call time.
// Best-effort: a failed delivery to one subscriber never prevents delivery to
// others and never propagates to the caller. Events emitted in call order are
// delivered to each subscriber in that order.
func (d *Dispatcher) Emit(ctx context.Context, topic domain.Topic, eventName string, payload any) {
	_, span := otel.Tracer(tracerName).Start(ctx, "live.Emit")
	defer span.End()

	event := Event{
		Name:      eventName,
		Timestamp: time.Now().UTC(),
		Topic:     topic,
		Data:      payload,
	}

	delivered, dropped := d.registry.fanOut(topic, event)

	span.SetAttributes(
		attribute.String("event", eventName),
		attribute.String("topic", string(topic)),
		attribute.Int("delivered", delivered),
		attribute.Int("dropped", dropped),
	)
	if d.emitted != nil {
		d.emitted.WithLabelValues(eventName).Inc()
	}
	if dropped > 0 && d.dropped != nil {
		d.dropped.Add(float64(dropped))
	}

	d.logger.Debug("event emitted",
		"event", eventName,
		"topic", topic,
		"delivered", delivered,
		"dropped", dropped,
	)

	if d.sink != nil {
		d.sink.Publish(ctx, event)
	}
}
