package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	retryStep     = time.Second
	maxRetryDelay = 10 * time.Second
)

// RunScheduler is the single loop driving the lifecycle. It sleeps until
// the next known deadline, re-reads state from storage and acts: the active
// session's end resolves it, the next start time opens a new one. Errors are
// logged and retried with a linear backoff; the loop only returns when ctx
// is done.
func (e *Engine) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", e.instanceID).Msg("scheduler started")

	timer := e.clock.NewTimer(0)
	defer timer.Stop()
	retryCount := 0

	// wait blocks until d elapsed. It reports false on shutdown and when
	// woken early.
	wait := func(d time.Duration, wakeable bool) (fired bool, done bool) {
		if !timer.Stop() {
			select {
			case <-timer.Chan():
			default:
			}
		}
		timer.Reset(d)
		var wake <-chan struct{}
		if wakeable {
			wake = e.schedule.woken()
		}
		select {
		case <-timer.Chan():
			return true, false
		case <-ctx.Done():
			timer.Stop()
			return false, true
		case <-wake:
			timer.Stop()
			return false, false
		}
	}

	for {
		if ctx.Err() != nil {
			log.Info().Str("instance", e.instanceID).Msg("scheduler stopped")
			return nil
		}

		select {
		case <-e.schedule.woken():
			log.Debug().Str("instance", e.instanceID).Msg("drained wake channel")
		default:
		}

		err := e.tick(ctx, wait)
		if errors.Is(err, errShutdown) {
			log.Info().Str("instance", e.instanceID).Msg("scheduler stopped")
			return nil
		}
		if err != nil {
			retryCount++
			delay := time.Duration(retryCount) * retryStep
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			log.Error().
				Err(err).
				Int("retry", retryCount).
				Dur("delay", delay).
				Str("instance", e.instanceID).
				Msg("scheduler step failed, retrying")
			if _, done := wait(delay, false); done {
				log.Info().Str("instance", e.instanceID).Msg("shutdown during retry")
				return nil
			}
			continue
		}
		retryCount = 0
	}
}

var errShutdown = errors.New("scheduler shutdown")

// tick performs one pass of the loop: pick the next deadline, sleep until
// it, then resolve or start.
func (e *Engine) tick(ctx context.Context, wait func(time.Duration, bool) (bool, bool)) error {
	active, err := e.activeSession(ctx)
	if err != nil {
		return err
	}

	var deadline time.Time
	switch {
	case active != nil:
		deadline = active.EndsAt
	default:
		next, ok := e.schedule.Next()
		if !ok {
			next = e.clock.Now().Add(e.settings.GapBetweenSessions)
			log.Warn().Str("instance", e.instanceID).Time("next_session_at", next).Msg("nothing scheduled; arming next session")
			e.schedule.SetNext(next)
		}
		deadline = next
	}

	if d := deadline.Sub(e.clock.Now()); d > 0 {
		fired, done := wait(d, true)
		if done {
			return errShutdown
		}
		if !fired {
			log.Debug().Str("instance", e.instanceID).Msg("woken up early; re-reading state")
			return nil
		}
	}

	if active != nil {
		_, err := e.ResolveAndScheduleNext(ctx)
		return err
	}

	_, err = e.StartSession(ctx)
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		// another instance opened the round first
		e.schedule.SetNext(conflict.EndsAt.Add(e.settings.GapBetweenSessions))
		return nil
	}
	return err
}
