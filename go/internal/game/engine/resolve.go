package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentRecordUpdates = 8

// Resolution is the outcome of a resolved session.
type Resolution struct {
	SessionID           uuid.UUID            `json:"sessionId"`
	WinningNumber       int                  `json:"winningNumber"`
	Winners             []models.PlayerEntry `json:"winners"`
	ResolvedAt          time.Time            `json:"resolvedAt"`
	NextSessionStartsAt time.Time            `json:"nextSessionStartsAt"`
}

// ResolveAndScheduleNext closes the active session exactly once: it draws the
// winning number, claims the session in storage, updates player records,
// releases the session's players from the lobby, promotes the queue and
// schedules the next start. It returns nil when there
// is nothing to resolve or another caller already claimed the session.
func (e *Engine) ResolveAndScheduleNext(ctx context.Context) (*Resolution, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}

	number := e.draw(e.settings.MinNumber, e.settings.MaxNumber)
	resolvedAt := e.clock.Now()

	claimed, err := e.sessions.Resolve(ctx, active.ID, number, resolvedAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		log.Debug().
			Str("session_id", active.ID.String()).
			Str("instance", e.instanceID).
			Msg("session already resolved elsewhere")
		e.adoptSchedule(ctx, active.ID)
		return nil, nil
	}

	winners := active.Winners(number)
	e.applyRecords(ctx, active.Players, number)

	// only the snapshot leaves; joins that landed after it stay for the next round
	released, err := e.lobby.ReleasePlayers(ctx, playerIDs(active.Players))
	if err != nil {
		log.Error().Err(err).Str("session_id", active.ID.String()).Msg("failed to release lobby players")
	} else {
		e.broadcastPlayers(ctx, released.Players)
	}

	promoted, err := e.lobby.PromoteQueue(ctx)
	if err != nil {
		log.Error().Err(err).Str("session_id", active.ID.String()).Msg("failed to promote queue")
	} else {
		e.broadcastPlayers(ctx, promoted.Players)
	}

	next := resolvedAt.Add(e.settings.GapBetweenSessions)
	e.broadcast(ctx, events.TypeSessionEnded, events.SessionEndedPayload{
		WinningNumber:       number,
		Winners:             winners,
		NextSessionStartsAt: next,
	})
	e.schedule.SetNext(next)

	log.Info().
		Str("session_id", active.ID.String()).
		Str("instance", e.instanceID).
		Int("winning_number", number).
		Int("winners", len(winners)).
		Int("players", len(active.Players)).
		Time("next_session_at", next).
		Msg("session resolved")

	return &Resolution{
		SessionID:           active.ID,
		WinningNumber:       number,
		Winners:             winners,
		ResolvedAt:          resolvedAt,
		NextSessionStartsAt: next,
	}, nil
}

// applyRecords updates every player's stats. Each update is independent and
// bounded by the record timeout; failures are logged and never returned.
func (e *Engine) applyRecords(ctx context.Context, players []models.PlayerEntry, winningNumber int) {
	if len(players) == 0 {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settings.RecordTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		failed int
	)
	var g errgroup.Group
	g.SetLimit(maxConcurrentRecordUpdates)
	for _, p := range players {
		g.Go(func() error {
			var err error
			if p.PickedNumber == winningNumber {
				err = e.records.RecordWin(recordCtx, p.UserID, e.settings.WinScore)
			} else {
				err = e.records.RecordLoss(recordCtx, p.UserID)
			}
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Error().
					Err(err).
					Str("user_id", p.UserID.String()).
					Bool("winner", p.PickedNumber == winningNumber).
					Msg("failed to update player record")
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		log.Warn().Int("failed", failed).Int("players", len(players)).Msg("some player records were not updated")
	}
}

func playerIDs(players []models.PlayerEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.UserID)
	}
	return ids
}

// adoptSchedule aligns the local next start with the instance that won the
// resolution claim.
func (e *Engine) adoptSchedule(ctx context.Context, id uuid.UUID) {
	resolved, err := e.sessions.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id.String()).Msg("failed to read resolved session")
		return
	}
	if resolved.ResolvedAt != nil {
		e.schedule.SetNext(resolved.ResolvedAt.Add(e.settings.GapBetweenSessions))
	}
}
