package live

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitchside/pkg/domain"
	"pitchside/pkg/requestcontext"
)

// sendBufferSize bounds each connection's outbound queue. A slow consumer
// drops events rather than blocking the dispatcher.
const sendBufferSize = 256

// ErrUnknownConnection is returned for join/leave against a connection id
// that was never registered or has already been dropped. A dropped id can
// never be resurrected.
var ErrUnknownConnection = errors.New("unknown connection")

// Connection is one live client channel. Created on handshake, destroyed on
// disconnect; its subscriptions are released atomically on drop.
type Connection struct {
	id       string
	identity *requestcontext.AuthIdentity
	send     chan Event
	topics   map[domain.Topic]struct{}
	joinedAt time.Time
}

// ID returns the system-generated connection id.
func (c *Connection) ID() string { return c.id }

// Identity returns the identity attached at handshake, or nil when the
// connection is anonymous.
func (c *Connection) Identity() *requestcontext.AuthIdentity { return c.identity }

// Events is the receive side of the connection's outbound queue. Closed when
// the connection is dropped.
func (c *Connection) Events() <-chan Event { return c.send }

// Registry maintains the topic -> subscriber index. A single mutex guards
// every mutation and read so joins, leaves, drops, and fan-out snapshots are
// mutually exclusive, as they are invoked concurrently from many connections.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]*Connection
	topics map[domain.Topic]map[string]*Connection
	logger *slog.Logger

	connGauge interface{ Inc() }
	connDone  interface{ Dec() }
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithConnectionGauge wires the live-connections gauge.
func WithConnectionGauge(g interface {
	Inc()
	Dec()
}) RegistryOption {
	return func(r *Registry) {
		r.connGauge = g
		r.connDone = g
	}
}

// NewRegistry builds an empty registry. Topics are created lazily on first
// join and removed when their last subscriber leaves, so an absent topic and
// an empty one are indistinguishable.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		conns:  make(map[string]*Connection),
		topics: make(map[domain.Topic]map[string]*Connection),
		logger: logger.With("component", "live.registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a connection for a client handshake. identity may be nil
// for anonymous connections.
func (r *Registry) Register(identity *requestcontext.AuthIdentity) *Connection {
	conn := &Connection{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan Event, sendBufferSize),
		topics:   make(map[domain.Topic]struct{}),
		joinedAt: time.Now(),
	}

	r.mu.Lock()
	r.conns[conn.id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if r.connGauge != nil {
		r.connGauge.Inc()
	}
	r.logger.Info("connection registered", "connection_id", conn.id, "total", total)
	return conn
}

// Join subscribes a connection to a topic. Idempotent; the first join of a
// topic sends a confirmation event back to that connection alone.
func (r *Registry) Join(connID string, topic domain.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if _, already := conn.topics[topic]; already {
		return nil
	}

	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[string]*Connection)
		r.topics[topic] = subs
	}
	subs[connID] = conn
	conn.topics[topic] = struct{}{}

	// Confirmation goes only to the joining connection. Non-blocking: a full
	// buffer loses the confirmation, not the subscription.
	select {
	case conn.send <- Event{
		Name:      eventSubscribed,
		Timestamp: time.Now().UTC(),
		Topic:     topic,
	}:
	default:
	}
	return nil
}

// Leave unsubscribes a connection from a topic. No-op if not subscribed.
func (r *Registry) Leave(connID string, topic domain.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	r.removeSubscription(conn, topic)
	return nil
}

// DropConnection removes the connection from every topic it subscribed to
// and closes its event channel. Atomic with respect to concurrent joins and
// leaves: no subscription survives a drop, and the id cannot be reused.
func (r *Registry) DropConnection(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	for topic := range conn.topics {
		r.removeSubscription(conn, topic)
	}
	delete(r.conns, connID)
	close(conn.send)
	total := len(r.conns)
	r.mu.Unlock()

	if r.connDone != nil {
		r.connDone.Dec()
	}
	r.logger.Info("connection dropped",
		"connection_id", connID,
		"duration", time.Since(conn.joinedAt),
		"total", total,
	)
}

// Shutdown drops every connection, closing their event channels so streaming
// handlers return promptly during graceful termination.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.DropConnection(id)
	}
}

// SubscribersOf returns a point-in-time snapshot of the connection ids
// subscribed to a topic. An absent topic yields an empty slice.
func (r *Registry) SubscribersOf(topic domain.Topic) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.topics[topic]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// Topics returns the topics a connection is currently subscribed to.
func (r *Registry) Topics(connID string) []domain.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}
	topics := make([]domain.Topic, 0, len(conn.topics))
	for topic := range conn.topics {
		topics = append(topics, topic)
	}
	return topics
}

// fanOut delivers an event to every subscriber of a topic under the registry
// lock, preserving per-topic emit order. Returns delivered and dropped
// counts. Sends never block: a slow subscriber loses the event.
func (r *Registry) fanOut(topic domain.Topic, event Event) (delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range r.topics[topic] {
		select {
		case conn.send <- event:
			delivered++
		default:
			dropped++
			r.logger.Warn("event dropped, subscriber buffer full",
				"connection_id", conn.id,
				"topic", topic,
				"event", event.Name,
			)
		}
	}
	return delivered, dropped
}

// removeSubscription must be called with r.mu held. Deletes the topic entry
// when its last subscriber leaves so empty topics never leak.
func (r *Registry) removeSubscription(conn *Connection, topic domain.Topic) {
	delete(conn.topics, topic)
	if subs, ok := r.topics[topic]; ok {
		delete(subs, conn.id)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
}
