// Package outbox persists lobby events and relays them to JetStream so that
// every gateway instance can fan them out to its sockets.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one stored event. Payload is the encoded events.Message.
type OutboxEvent struct {
	ID        uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}
