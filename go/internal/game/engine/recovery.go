package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Recover rebuilds the schedule after a restart. A session that is still
// running is left alone and the loop arms its resolution for the remaining
// time. An overdue session is resolved and the next one follows after the
// gap. With no session at all a fresh one is started.
func (e *Engine) Recover(ctx context.Context) error {
	active, err := e.activeSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to read active session: %w", err)
	}

	now := e.clock.Now()
	if active != nil && active.EndsAt.After(now) {
		e.schedule.SetNext(active.EndsAt.Add(e.settings.GapBetweenSessions))
		log.Info().
			Str("session_id", active.ID.String()).
			Str("instance", e.instanceID).
			Dur("remaining", active.EndsAt.Sub(now)).
			Msg("rejoined running session")
		return nil
	}

	if active != nil {
		// overdue; the loop starts the next round after the gap
		log.Warn().
			Str("session_id", active.ID.String()).
			Str("instance", e.instanceID).
			Dur("overdue", now.Sub(active.EndsAt)).
			Msg("resolving overdue session")
		if _, err := e.ResolveAndScheduleNext(ctx); err != nil {
			return fmt.Errorf("failed to resolve overdue session: %w", err)
		}
		return nil
	}

	_, err = e.StartSession(ctx)
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		e.schedule.SetNext(conflict.EndsAt.Add(e.settings.GapBetweenSessions))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}
