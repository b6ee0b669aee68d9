package gamedb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	Streak           int32
	LongestWinStreak int32
	TotalGamesPlayed int32
	CreatedAt        time.Time
}

const userColumns = `id, username, email, password_hash, streak, longest_win_streak, total_games_played, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Streak,
		&u.LongestWinStreak,
		&u.TotalGamesPlayed,
		&u.CreatedAt,
	)
	return u, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, username, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Username, arg.Email, arg.PasswordHash)
	return scanUser(row)
}

const getUser = `-- name: GetUser :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const applyWin = `-- name: ApplyWin :one
UPDATE users
SET streak             = streak + 1,
    longest_win_streak = GREATEST(longest_win_streak, streak + 1),
    total_games_played = total_games_played + 1
WHERE id = $1
RETURNING streak`

// ApplyWin bumps the streak counters and returns the new streak.
func (q *Queries) ApplyWin(ctx context.Context, id uuid.UUID) (int32, error) {
	var streak int32
	err := q.db.QueryRowContext(ctx, applyWin, id).Scan(&streak)
	return streak, err
}

const applyLoss = `-- name: ApplyLoss :execrows
UPDATE users
SET streak             = 0,
    total_games_played = total_games_played + 1
WHERE id = $1`

func (q *Queries) ApplyLoss(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, applyLoss, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertWinHistory = `-- name: InsertWinHistory :exec
INSERT INTO win_history (user_id, won_at, score) VALUES ($1, $2, $3)`

type InsertWinHistoryParams struct {
	UserID uuid.UUID
	WonAt  time.Time
	Score  int32
}

func (q *Queries) InsertWinHistory(ctx context.Context, arg InsertWinHistoryParams) error {
	_, err := q.db.ExecContext(ctx, insertWinHistory, arg.UserID, arg.WonAt, arg.Score)
	return err
}

type WinHistory struct {
	WonAt time.Time
	Score int32
}

const listWinHistory = `-- name: ListWinHistory :many
SELECT won_at, score FROM win_history WHERE user_id = $1 ORDER BY id`

func (q *Queries) ListWinHistory(ctx context.Context, userID uuid.UUID) ([]WinHistory, error) {
	rows, err := q.db.QueryContext(ctx, listWinHistory, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WinHistory
	for rows.Next() {
		var i WinHistory
		if err := rows.Scan(&i.WonAt, &i.Score); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type LeaderboardRow struct {
	UserID        uuid.UUID
	Username      string
	Wins          int64
	LongestStreak int32
}

const leaderboard = `-- name: Leaderboard :many
SELECT u.id, u.username, COUNT(w.id) AS wins, u.longest_win_streak
FROM users u
LEFT JOIN win_history w ON w.user_id = u.id
GROUP BY u.id
ORDER BY wins DESC, u.longest_win_streak DESC, u.username
LIMIT $1`

func (q *Queries) Leaderboard(ctx context.Context, limit int32) ([]LeaderboardRow, error) {
	rows, err := q.db.QueryContext(ctx, leaderboard, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LeaderboardRow
	for rows.Next() {
		var i LeaderboardRow
		if err := rows.Scan(&i.UserID, &i.Username, &i.Wins, &i.LongestStreak); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
