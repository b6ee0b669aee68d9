package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`

	Streak           int `json:"streak"`
	LongestWinStreak int `json:"longestWinStreak"`
	TotalGamesPlayed int `json:"totalGamesPlayed"`
}

// WinRecord is one entry of a user's append-only win history.
type WinRecord struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// LeaderboardEntry is one row of the wins leaderboard.
type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"userId"`
	Username      string    `json:"username"`
	Wins          int       `json:"wins"`
	LongestStreak int       `json:"longestStreak"`
}
