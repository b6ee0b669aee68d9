package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type tags every message crossing the socket or the event bus.
type Type string

// Server to client
const (
	TypeSessionStarted      Type = "sessionStarted"
	TypeSessionEnded        Type = "sessionEnded"
	TypePlayersInLobby      Type = "playersInLobby"
	TypeGameState           Type = "gameState"
	TypeConnectionConfirmed Type = "connectionConfirmed"
	TypeError               Type = "error"
)

// Client to server
const (
	TypeGetGameState Type = "getGameState"
	TypeGetPlayers   Type = "getPlayers"
)

var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrMalformedBody = errors.New("malformed message")
)

// Message is the tagged envelope. Data holds the payload matching Type.
type Message struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps payload in a message of type t.
func NewMessage(t Type, payload any, now time.Time) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}

// IsBroadcast reports whether t is an event fanned out to every client.
func (t Type) IsBroadcast() bool {
	switch t {
	case TypeSessionStarted, TypeSessionEnded, TypePlayersInLobby:
		return true
	}
	return false
}

// ParsePayload decodes the message data into the payload struct for its type.
func ParsePayload(msg *Message) (interface{}, error) {
	switch msg.Type {
	case TypeSessionStarted:
		var payload SessionStartedPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return payload, nil

	case TypeSessionEnded:
		var payload SessionEndedPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return payload, nil

	case TypePlayersInLobby:
		var payload PlayersInLobbyPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return payload, nil

	case TypeGameState:
		var payload GameState
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// ParseClientRequest validates an inbound client frame and returns its type.
func ParseClientRequest(raw []byte) (Type, error) {
	var req struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	switch req.Type {
	case TypeGetGameState, TypeGetPlayers:
		return req.Type, nil
	case "":
		return "", fmt.Errorf("%w: missing type", ErrMalformedBody)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
}
