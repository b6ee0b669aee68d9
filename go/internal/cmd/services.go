package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/api"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/config"
	"github.com/mcdev12/luckydraw/go/internal/dbconfig"
	"github.com/mcdev12/luckydraw/go/internal/game"
	"github.com/mcdev12/luckydraw/go/internal/game/engine"
	"github.com/mcdev12/luckydraw/go/internal/game/gateway"
	"github.com/mcdev12/luckydraw/go/internal/game/lobby"
	"github.com/mcdev12/luckydraw/go/internal/game/outbox"
	"github.com/mcdev12/luckydraw/go/internal/game/session"
	"github.com/mcdev12/luckydraw/go/internal/gamedb"
	"github.com/mcdev12/luckydraw/go/internal/uptime"
	"github.com/mcdev12/luckydraw/go/internal/users"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Engine  *engine.Engine
	Gateway *gateway.Service
	Game    *game.Service
	API     *api.Handler

	relay     *outbox.Listener
	publisher *outbox.JetStreamPublisher
	pinger    *uptime.Pinger
}

func setupServices(ctx context.Context, database *sql.DB, dbCfg dbconfig.Config, cfg *config.Config) (*Services, error) {
	// Database layer → Repository layer → App layer → Engine → transports
	queries := gamedb.New(database)
	clock := clockwork.NewRealClock()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, clock)
	useNATS := cfg.EventTransport == config.TransportNATS

	// Users
	usersApp := users.NewApp(users.NewRepository(database), clock)

	// Lobby and sessions
	lobbyApp := lobby.NewApp(lobby.NewRepository(database), cfg.Game.MinNumber, cfg.Game.MaxNumber)
	sessions := session.NewRepository(queries)

	// Gateway
	gatewayCfg := gateway.DefaultConfig()
	if useNATS {
		consumerCfg := gateway.DefaultJetStreamConsumerConfig()
		consumerCfg.URL = cfg.NATSURL
		gatewayCfg.JetStream = &consumerCfg
	}
	gw, err := gateway.NewService(ctx, gatewayCfg, tokens)
	if err != nil {
		return nil, err
	}

	s := &Services{Gateway: gw}

	var broadcaster engine.Broadcaster = gw.Connections()
	if useNATS {
		outboxApp := outbox.NewApp(outbox.NewRepository(queries))

		publisherCfg := outbox.DefaultJetStreamConfig()
		publisherCfg.URL = cfg.NATSURL
		publisher, err := outbox.NewJetStreamPublisher(ctx, publisherCfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
		}
		s.publisher = publisher

		listenerCfg := outbox.DefaultListenerConfig()
		listenerCfg.DatabaseURL = dbCfg.DSN()
		relay, err := outbox.NewListener(outboxApp, outbox.NewMetricPublisher(publisher, outbox.NewLogMetricsCollector()), listenerCfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create outbox listener: %w", err)
		}
		s.relay = relay
		broadcaster = outboxApp
	}

	// Engine
	s.Engine = engine.NewEngine(lobbyApp, sessions, usersApp, broadcaster, cfg.Game, engine.WithClock(clock))
	gw.Bind(s.Engine)

	// Request surfaces
	s.Game = game.NewService(s.Engine, tokens)
	s.API = api.NewHandler(s.Engine, usersApp, tokens, clock)

	if cfg.APIHost != "" {
		s.pinger = uptime.NewPinger(cfg.APIHost, cfg.UptimeInterval, clock)
	}

	log.Info().
		Str("event_transport", cfg.EventTransport).
		Int("min_number", cfg.Game.MinNumber).
		Int("max_number", cfg.Game.MaxNumber).
		Dur("session_duration", cfg.Game.SessionDuration).
		Dur("gap", cfg.Game.GapBetweenSessions).
		Msg("services configured")
	return s, nil
}

// Start recovers the session schedule and launches the background loops.
func (s *Services) Start(ctx context.Context) error {
	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped with error")
		}
	}()

	if s.relay != nil {
		go func() {
			if err := s.relay.Start(ctx); err != nil {
				log.Error().Err(err).Msg("outbox listener stopped with error")
			}
		}()
	}

	if err := s.Engine.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover sessions: %w", err)
	}

	go func() {
		if err := s.Engine.RunScheduler(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	if s.pinger != nil {
		go s.pinger.Run(ctx)
	}
	return nil
}

func (s *Services) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close outbox publisher")
		}
	}
}
