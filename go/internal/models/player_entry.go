package models

import (
	"github.com/google/uuid"
)

// PlayerEntry is a user's committed pick for a round.
type PlayerEntry struct {
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	PickedNumber int       `json:"pickedNumber"`
}

// IndexOfPlayer returns the position of userID in entries, or -1.
func IndexOfPlayer(entries []PlayerEntry, userID uuid.UUID) int {
	for i, e := range entries {
		if e.UserID == userID {
			return i
		}
	}
	return -1
}
