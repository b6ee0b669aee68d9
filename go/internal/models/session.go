package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the externally visible phase of the game.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusWaiting SessionStatus = "waiting"
)

// Session is one timed round. Sessions are never deleted.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	IsActive      bool          `json:"isActive"`
	StartedAt     time.Time     `json:"startedAt"`
	EndsAt        time.Time     `json:"endsAt"`
	Players       []PlayerEntry `json:"players"`
	WinningNumber *int          `json:"winningNumber,omitempty"`
	ResolvedAt    *time.Time    `json:"resolvedAt,omitempty"`
}

// Winners returns the players whose pick equals number, in session order.
func (s *Session) Winners(number int) []PlayerEntry {
	winners := make([]PlayerEntry, 0)
	for _, p := range s.Players {
		if p.PickedNumber == number {
			winners = append(winners, p)
		}
	}
	return winners
}
