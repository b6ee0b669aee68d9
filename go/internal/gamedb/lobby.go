package gamedb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Lobby struct {
	ID        uuid.UUID
	Players   pqtype.NullRawMessage
	Queue     pqtype.NullRawMessage
	UpdatedAt time.Time
}

const ensureLobby = `-- name: EnsureLobby :exec
INSERT INTO lobby (id) VALUES ($1)
ON CONFLICT (singleton) DO NOTHING`

// EnsureLobby creates the singleton row if it is missing.
func (q *Queries) EnsureLobby(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, ensureLobby, id)
	return err
}

const getLobby = `-- name: GetLobby :one
SELECT id, players, queue, updated_at FROM lobby WHERE singleton`

func (q *Queries) GetLobby(ctx context.Context) (Lobby, error) {
	var l Lobby
	err := q.db.QueryRowContext(ctx, getLobby).Scan(&l.ID, &l.Players, &l.Queue, &l.UpdatedAt)
	return l, err
}

const getLobbyForUpdate = `-- name: GetLobbyForUpdate :one
SELECT id, players, queue, updated_at FROM lobby WHERE singleton FOR UPDATE`

// GetLobbyForUpdate locks the lobby row until the surrounding transaction ends.
func (q *Queries) GetLobbyForUpdate(ctx context.Context) (Lobby, error) {
	var l Lobby
	err := q.db.QueryRowContext(ctx, getLobbyForUpdate).Scan(&l.ID, &l.Players, &l.Queue, &l.UpdatedAt)
	return l, err
}

const updateLobby = `-- name: UpdateLobby :one
UPDATE lobby SET players = $2, queue = $3, updated_at = now()
WHERE id = $1
RETURNING id, players, queue, updated_at`

type UpdateLobbyParams struct {
	ID      uuid.UUID
	Players pqtype.NullRawMessage
	Queue   pqtype.NullRawMessage
}

func (q *Queries) UpdateLobby(ctx context.Context, arg UpdateLobbyParams) (Lobby, error) {
	var l Lobby
	err := q.db.QueryRowContext(ctx, updateLobby, arg.ID, arg.Players, arg.Queue).
		Scan(&l.ID, &l.Players, &l.Queue, &l.UpdatedAt)
	return l, err
}
