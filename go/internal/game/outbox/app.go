package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	Insert(ctx context.Context, event OutboxEvent) error
	FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// App writes engine broadcasts into the outbox table.
type App struct {
	repo OutboxRepository
}

func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// Broadcast stores msg for relay. The message ID doubles as the outbox ID so
// JetStream can drop duplicates published by several relays.
func (a *App) Broadcast(ctx context.Context, msg *events.Message) error {
	if !msg.Type.IsBroadcast() {
		return fmt.Errorf("%w: %q is not a broadcast event", events.ErrUnknownType, msg.Type)
	}
	id, err := uuid.Parse(msg.ID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", msg.ID, err)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	if err := a.repo.Insert(ctx, OutboxEvent{
		ID:        id,
		EventType: string(msg.Type),
		Payload:   payload,
	}); err != nil {
		return err
	}

	log.Debug().
		Str("event_id", msg.ID).
		Str("event_type", string(msg.Type)).
		Msg("outbox event inserted")
	return nil
}

// ProcessUnsent publishes up to limit pending events and marks each one sent.
// It returns how many were relayed.
func (a *App) ProcessUnsent(ctx context.Context, limit int32, publish func(ctx context.Context, event OutboxEvent) error) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	pending, err := a.repo.FetchUnsent(ctx, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, event := range pending {
		if err := publish(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			continue
		}
		if err := a.repo.MarkSent(ctx, event.ID); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event as sent after publishing")
			continue
		}
		processed++
	}

	if len(pending) > 0 {
		log.Info().
			Int("processed", processed).
			Int("total", len(pending)).
			Msg("processed unsent events batch")
	}
	return processed, nil
}

// Relay publishes a single event and marks it sent.
func (a *App) Relay(ctx context.Context, id uuid.UUID, publish func(ctx context.Context, event OutboxEvent) error) error {
	event, err := a.repo.FetchByID(ctx, id)
	if err != nil {
		return err
	}
	if err := publish(ctx, *event); err != nil {
		return err
	}
	return a.repo.MarkSent(ctx, id)
}
