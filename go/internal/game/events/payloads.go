package events

import (
	"time"

	"github.com/mcdev12/luckydraw/go/internal/models"
)

// Event payload types that are shared between the engine and gateway packages

// SessionStartedPayload is the payload for a sessionStarted event
type SessionStartedPayload struct {
	StartedAt           time.Time `json:"startedAt"`
	EndsAt              time.Time `json:"endsAt"`
	NextSessionStartsAt time.Time `json:"nextSessionStartsAt"`
}

// SessionEndedPayload is the payload for a sessionEnded event
type SessionEndedPayload struct {
	WinningNumber       int                  `json:"winningNumber"`
	Winners             []models.PlayerEntry `json:"winners"`
	NextSessionStartsAt time.Time            `json:"nextSessionStartsAt"`
}

// PlayersInLobbyPayload is the payload for a playersInLobby event
type PlayersInLobbyPayload struct {
	Players []models.PlayerEntry `json:"players"`
}

// GameState is the current snapshot sent to a single client.
// RemainingTime is in milliseconds and is nil while waiting with no next session known.
type GameState struct {
	Status              models.SessionStatus `json:"status"`
	StartedAt           *time.Time           `json:"startedAt,omitempty"`
	EndsAt              *time.Time           `json:"endsAt,omitempty"`
	RemainingTime       *int64               `json:"remainingTime"`
	NextSessionStartsAt *time.Time           `json:"nextSessionStartsAt,omitempty"`
}

// ConnectionConfirmedPayload greets a freshly connected client
type ConnectionConfirmedPayload struct {
	Message    string    `json:"message"`
	ClientID   string    `json:"clientId"`
	ServerTime time.Time `json:"serverTime"`
}

// ErrorPayload reports a rejected client message
type ErrorPayload struct {
	Message string `json:"message"`
}
