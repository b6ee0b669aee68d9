package models

import (
	"time"

	"github.com/google/uuid"
)

// Lobby is the singleton waiting area.
// Players holds entries for the next round, Queue holds late joiners deferred past the active round.
type Lobby struct {
	ID        uuid.UUID     `json:"id"`
	Players   []PlayerEntry `json:"players"`
	Queue     []PlayerEntry `json:"queue"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Contains reports whether userID is in either players or queue.
func (l *Lobby) Contains(userID uuid.UUID) bool {
	return IndexOfPlayer(l.Players, userID) >= 0 || IndexOfPlayer(l.Queue, userID) >= 0
}

// Everyone returns players followed by the queue.
func (l *Lobby) Everyone() []PlayerEntry {
	all := make([]PlayerEntry, 0, len(l.Players)+len(l.Queue))
	all = append(all, l.Players...)
	return append(all, l.Queue...)
}
