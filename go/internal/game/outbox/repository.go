package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/gamedb"
)

var ErrEventNotFound = errors.New("outbox event not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	InsertOutboxEvent(ctx context.Context, arg gamedb.InsertOutboxEventParams) error
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (gamedb.GameOutbox, error)
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]gamedb.GameOutbox, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{queries: querier}
}

func (r *Repository) Insert(ctx context.Context, event OutboxEvent) error {
	if err := r.queries.InsertOutboxEvent(ctx, gamedb.InsertOutboxEventParams{
		ID:        event.ID,
		EventType: event.EventType,
		Payload:   event.Payload,
	}); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row, err := r.queries.FetchOutboxByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	event := rowToEvent(row)
	return &event, nil
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.queries.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	out := make([]OutboxEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToEvent(row))
	}
	return out, nil
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}

func rowToEvent(row gamedb.GameOutbox) OutboxEvent {
	return OutboxEvent{
		ID:        row.ID,
		EventType: row.EventType,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
	}
}
