package gamedb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type GameOutbox struct {
	ID        uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

const insertOutboxEvent = `-- name: InsertOutboxEvent :exec
INSERT INTO game_outbox (id, event_type, payload) VALUES ($1, $2, $3)`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	EventType string
	Payload   json.RawMessage
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent, arg.ID, arg.EventType, []byte(arg.Payload))
	return err
}

const fetchOutboxByID = `-- name: FetchOutboxByID :one
SELECT id, event_type, payload, created_at, sent_at FROM game_outbox WHERE id = $1`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (GameOutbox, error) {
	var i GameOutbox
	err := q.db.QueryRowContext(ctx, fetchOutboxByID, id).
		Scan(&i.ID, &i.EventType, &i.Payload, &i.CreatedAt, &i.SentAt)
	return i, err
}

const fetchUnsentOutbox = `-- name: FetchUnsentOutbox :many
SELECT id, event_type, payload, created_at, sent_at
FROM game_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]GameOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GameOutbox
	for rows.Next() {
		var i GameOutbox
		if err := rows.Scan(&i.ID, &i.EventType, &i.Payload, &i.CreatedAt, &i.SentAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxSent = `-- name: MarkOutboxSent :exec
UPDATE game_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}
