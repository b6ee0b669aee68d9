package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel the insert trigger notifies on
	FallbackInterval time.Duration // How often to sweep for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "game_outbox_events",
		FallbackInterval: 15 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Publisher delivers an outbox event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// Listener relays outbox rows as soon as Postgres notifies about them, and
// sweeps for anything a dropped notification left behind.
type Listener struct {
	app       *App
	conn      *pq.Listener
	notify    <-chan *pq.Notification
	publisher Publisher
	cfg       ListenerConfig
}

func NewListener(app *App, publisher Publisher, cfg ListenerConfig) (*Listener, error) {
	conn := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := conn.Listen(cfg.NotifyChannel); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for outbox notifications")

	return &Listener{
		app:       app,
		conn:      conn,
		notify:    conn.Notify,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("outbox listener started")

	// Catch up on anything written while no relay was running.
	if err := l.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox listener shutting down")
			return l.Stop()
		case note := <-l.notify:
			if note == nil {
				// connection was re-established; notifications may have been missed
				if err := l.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if l.conn == nil {
				continue
			}
			if err := l.conn.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

// handleNotification relays the row whose id arrived as the notification payload.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}
	if err := l.app.Relay(ctx, id, l.publishWithRetry); err != nil {
		return fmt.Errorf("failed to relay event %s: %w", id, err)
	}
	log.Debug().Str("event_id", id.String()).Msg("published and marked event as sent")
	return nil
}

func (l *Listener) processUnsent(ctx context.Context) error {
	_, err := l.app.ProcessUnsent(ctx, l.cfg.BatchSize, l.publishWithRetry)
	return err
}

// publishWithRetry publishes with a linearly growing delay between attempts.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
