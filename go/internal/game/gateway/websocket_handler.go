package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/rs/zerolog/log"
)

const anonymousUser = "anonymous"

// TokenVerifier resolves a bearer token into an identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// WebSocketHandler handles WebSocket upgrade requests for the lobby
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	tokens            TokenVerifier
}

func NewWebSocketHandler(cm *ConnectionManager, tokens TokenVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		tokens:            tokens,
	}
}

// HandleConnection upgrades the request. A valid token (query "token" or
// bearer header) tags the connection with the user; sockets are otherwise
// anonymous.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := anonymousUser
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw, _ = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if raw != "" && h.tokens != nil {
		id, err := h.tokens.Verify(raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID = id.UserID.String()
	}

	if _, err := h.connectionManager.UpgradeConnection(w, r, userID); err != nil {
		// the upgrader has already replied to the client
		log.Error().Err(err).Str("user_id", userID).Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
