package events

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStream layout shared by the outbox publisher and the gateway consumers.
const (
	StreamName    = "GAME_EVENTS"
	SubjectPrefix = "game.events."
	SubjectFilter = SubjectPrefix + ">"
)

// Subject returns the bus subject for events of type t.
func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

// StreamConfig is the stream every instance agrees on. Events are only
// useful live, so retention is short.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectFilter},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     10 * time.Minute,
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
	}
}
