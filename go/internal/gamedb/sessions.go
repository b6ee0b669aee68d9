package gamedb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Session struct {
	ID            uuid.UUID
	IsActive      bool
	StartedAt     time.Time
	EndsAt        time.Time
	Players       pqtype.NullRawMessage
	WinningNumber sql.NullInt32
	ResolvedAt    sql.NullTime
}

const sessionColumns = `id, is_active, started_at, ends_at, players, winning_number, resolved_at`

func scanSession(row interface{ Scan(...interface{}) error }) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.IsActive,
		&s.StartedAt,
		&s.EndsAt,
		&s.Players,
		&s.WinningNumber,
		&s.ResolvedAt,
	)
	return s, err
}

const getActiveSession = `-- name: GetActiveSession :one
SELECT ` + sessionColumns + ` FROM sessions WHERE is_active`

func (q *Queries) GetActiveSession(ctx context.Context) (Session, error) {
	return scanSession(q.db.QueryRowContext(ctx, getActiveSession))
}

const getSession = `-- name: GetSession :one
SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	return scanSession(q.db.QueryRowContext(ctx, getSession, id))
}

const createSession = `-- name: CreateSession :one
INSERT INTO sessions (id, is_active, started_at, ends_at, players)
VALUES ($1, TRUE, $2, $3, $4)
RETURNING ` + sessionColumns

type CreateSessionParams struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndsAt    time.Time
	Players   pqtype.NullRawMessage
}

// CreateSession fails with a unique violation on sessions_single_active
// when another session is already active.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, createSession, arg.ID, arg.StartedAt, arg.EndsAt, arg.Players)
	return scanSession(row)
}

const resolveSession = `-- name: ResolveSession :execrows
UPDATE sessions
SET is_active = FALSE, winning_number = $2, resolved_at = $3
WHERE id = $1 AND is_active`

type ResolveSessionParams struct {
	ID            uuid.UUID
	WinningNumber int32
	ResolvedAt    time.Time
}

// ResolveSession returns 1 for the caller that closed the session and 0 for everyone else.
func (q *Queries) ResolveSession(ctx context.Context, arg ResolveSessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, resolveSession, arg.ID, arg.WinningNumber, arg.ResolvedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
