package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/luckydraw/go/internal/game/engine"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/rs/zerolog/log"
)

const welcomeMessage = "Welcome to the game lobby!"

// StateProvider is what the gateway reads to answer clients.
type StateProvider interface {
	GetCurrentState(ctx context.Context) (*events.GameState, error)
	LobbyPlayers(ctx context.Context) ([]models.PlayerEntry, error)
	SyncClient(ctx context.Context, client engine.Recipient) error
}

// LobbyHandler greets new clients and answers getGameState and getPlayers.
type LobbyHandler struct {
	state StateProvider
	now   func() time.Time
}

func NewLobbyHandler(state StateProvider) *LobbyHandler {
	return &LobbyHandler{state: state, now: time.Now}
}

// Bind sets the state provider. The engine needs the gateway as its
// broadcaster, so it is usually built after the handler.
func (h *LobbyHandler) Bind(state StateProvider) {
	h.state = state
}

// OnConnect sends connectionConfirmed followed by the current lobby and state.
func (h *LobbyHandler) OnConnect(ctx context.Context, conn *Connection) {
	h.reply(conn, events.TypeConnectionConfirmed, events.ConnectionConfirmedPayload{
		Message:    welcomeMessage,
		ClientID:   conn.ID,
		ServerTime: h.now().UTC(),
	})

	if h.state == nil {
		return
	}
	if err := h.state.SyncClient(ctx, conn); err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to sync state to client")
	}
}

// OnRequest validates a client frame and answers it on the same connection.
func (h *LobbyHandler) OnRequest(ctx context.Context, conn *Connection, raw []byte) {
	reqType, err := events.ParseClientRequest(raw)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", conn.ID).Msg("rejected client message")
		msg := "invalid message"
		if errors.Is(err, events.ErrUnknownType) {
			msg = "unknown message type"
		}
		h.reply(conn, events.TypeError, events.ErrorPayload{Message: msg})
		return
	}
	if h.state == nil {
		h.reply(conn, events.TypeError, events.ErrorPayload{Message: "game not ready"})
		return
	}

	switch reqType {
	case events.TypeGetGameState:
		state, err := h.state.GetCurrentState(ctx)
		if err != nil {
			log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to read game state")
			h.reply(conn, events.TypeError, events.ErrorPayload{Message: "failed to read game state"})
			return
		}
		h.reply(conn, events.TypeGameState, state)

	case events.TypeGetPlayers:
		players, err := h.state.LobbyPlayers(ctx)
		if err != nil {
			log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to read lobby")
			h.reply(conn, events.TypeError, events.ErrorPayload{Message: "failed to read lobby"})
			return
		}
		h.reply(conn, events.TypePlayersInLobby, events.PlayersInLobbyPayload{Players: players})
	}
}

func (h *LobbyHandler) reply(conn *Connection, t events.Type, payload any) {
	msg, err := events.NewMessage(t, payload, h.now())
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to build reply")
		return
	}
	if err := conn.Send(msg); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Str("type", string(t)).Msg("failed to send reply")
	}
}
