// Package live implements the connection/room registry, the broadcast
// dispatcher, and the SSE transport that delivers domain events to
// subscribed clients.
package live

import (
	"time"

	"pitchside/pkg/domain"
)

// Canonical event names pushed by collaborators through the dispatcher.
const (
	EventScoreUpdated      = "score-updated"
	EventStatusUpdated     = "status-updated"
	EventPlayerStatUpdated = "player-stat-updated"
	EventEntityCreated     = "entity-created"

	// eventConnected and eventSubscribed are transport-level events sent to a
	// single connection, never broadcast.
	eventConnected  = "connected"
	eventSubscribed = "subscribed"
)

// Event is the payload delivered to subscribers. Fire-and-forget: there is no
// delivery guarantee beyond best effort to the connections subscribed at
// dispatch time.
type Event struct {
	Name      string       `json:"eventName"`
	Timestamp time.Time    `json:"timestamp"`
	Topic     domain.Topic `json:"topicId,omitempty"`
	Data      any          `json:"data,omitempty"`
}
