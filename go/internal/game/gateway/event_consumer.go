package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL               string
	ConsumerName      string
	MaxDeliver        int
	AckWait           time.Duration
	MaxAckPending     int
	InactiveThreshold time.Duration
	MaxReconnects     int
	ReconnectWait     time.Duration
}

// DefaultJetStreamConsumerConfig returns a config with a consumer name unique
// to this process, so every instance sees every event.
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:               nats.DefaultURL,
		ConsumerName:      "lobby-gateway-" + uuid.New().String()[:8],
		MaxDeliver:        3,
		AckWait:           10 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: time.Minute,
		MaxReconnects:     -1, // Infinite
		ReconnectWait:     2 * time.Second,
	}
}

// LocalBroadcaster delivers to the sockets of this process.
type LocalBroadcaster interface {
	Broadcast(ctx context.Context, msg *events.Message) error
}

// EventConsumer relays bus events to the local WebSocket clients
type EventConsumer struct {
	local    LocalBroadcaster
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConsumerConfig
}

// NewEventConsumer connects to NATS and creates this instance's consumer.
func NewEventConsumer(ctx context.Context, local LocalBroadcaster, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.Name(config.ConsumerName),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		local:  local,
		nc:     nc,
		js:     js,
		config: config,
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.CreateOrUpdateStream(ctx, events.StreamConfig())
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              ec.config.ConsumerName,
		Description:       "lobby gateway WebSocket fan-out",
		FilterSubject:     events.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        ec.config.MaxDeliver,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		InactiveThreshold: ec.config.InactiveThreshold,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", events.StreamName).
		Msg("JetStream consumer ready")
	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is done.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().Str("consumer", ec.config.ConsumerName).Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(ctx, msg.Data()); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				// a malformed event will not improve on redelivery
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

func (ec *EventConsumer) processMessage(ctx context.Context, data []byte) error {
	msg, err := decodeEvent(data)
	if err != nil {
		return err
	}
	if err := ec.local.Broadcast(ctx, msg); err != nil {
		log.Warn().Err(err).Str("event_id", msg.ID).Msg("local broadcast dropped")
	}
	log.Debug().
		Str("event_id", msg.ID).
		Str("type", string(msg.Type)).
		Msg("event relayed to WebSocket clients")
	return nil
}

// decodeEvent validates a bus payload. Only broadcast types are relayed.
func decodeEvent(data []byte) (*events.Message, error) {
	var msg events.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if !msg.Type.IsBroadcast() {
		return nil, fmt.Errorf("%w: %q is not a broadcast event", events.ErrUnknownType, msg.Type)
	}
	if _, err := events.ParsePayload(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
