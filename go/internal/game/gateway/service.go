package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the connection manager, the socket routes and, when events
// travel over NATS, the JetStream consumer.
type Service struct {
	connectionManager *ConnectionManager
	handler           *LobbyHandler
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service. A nil JetStream means
// events are broadcast in-process only.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStream        *JetStreamConsumerConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

func NewService(ctx context.Context, config Config, tokens TokenVerifier) (*Service, error) {
	handler := NewLobbyHandler(nil)
	cm := NewConnectionManager(config.ConnectionConfig, handler)

	s := &Service{
		connectionManager: cm,
		handler:           handler,
		wsHandler:         NewWebSocketHandler(cm, tokens),
	}

	if config.JetStream != nil {
		consumer, err := NewEventConsumer(ctx, cm, *config.JetStream)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Bind attaches the state provider used to answer clients.
func (s *Service) Bind(state StateProvider) {
	s.handler.Bind(state)
}

// Connections is the local broadcaster.
func (s *Service) Connections() *ConnectionManager {
	return s.connectionManager
}

// Start runs the gateway until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting lobby gateway")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("lobby gateway shutting down")
	return s.Stop()
}

func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("lobby gateway stopped")
	return nil
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
}
