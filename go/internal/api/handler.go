package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/game/engine"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/mcdev12/luckydraw/go/internal/users"
)

const Prefix = "/api/v1"

// GameEngine defines what the REST layer needs from the engine
type GameEngine interface {
	StartSession(ctx context.Context) (*engine.StartResult, error)
	GetCurrentState(ctx context.Context) (*events.GameState, error)
	ActiveSession(ctx context.Context) (*engine.ActiveSessionInfo, error)
	JoinLobby(ctx context.Context, userID uuid.UUID, username string, pickedNumber int) (*engine.JoinResult, error)
	LeaveLobby(ctx context.Context, userID uuid.UUID) (*engine.LeaveResult, error)
	EndSession(ctx context.Context) (*engine.Resolution, error)
}

// UsersApp defines what the REST layer needs from the users application
type UsersApp interface {
	Register(ctx context.Context, req users.CreateUserRequest) (*models.User, error)
	Authenticate(ctx context.Context, req users.LoginRequest) (*models.User, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Tokens issues and checks bearer tokens
type Tokens interface {
	Issue(id auth.Identity) (string, error)
	Authenticate(r *http.Request) (auth.Identity, error)
}

type Handler struct {
	game   GameEngine
	users  UsersApp
	tokens Tokens
	clock  clockwork.Clock
}

func NewHandler(game GameEngine, usersApp UsersApp, tokens Tokens, clock clockwork.Clock) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{game: game, users: usersApp, tokens: tokens, clock: clock}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+Prefix+"/health", h.health)

	mux.HandleFunc("POST "+Prefix+"/auth/register", h.register)
	mux.HandleFunc("POST "+Prefix+"/auth/login", h.login)

	mux.HandleFunc("GET "+Prefix+"/game/state", h.state)
	mux.HandleFunc("GET "+Prefix+"/game/active", h.active)
	mux.HandleFunc("GET "+Prefix+"/game/leaderboard", h.leaderboard)
	mux.HandleFunc("POST "+Prefix+"/game/start", h.requireAuth(h.start))
	mux.HandleFunc("POST "+Prefix+"/game/join", h.requireAuth(h.join))
	mux.HandleFunc("POST "+Prefix+"/game/leave", h.requireAuth(h.leave))
	mux.HandleFunc("POST "+Prefix+"/game/end", h.requireAuth(h.end))
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's identity on the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.tokens.Authenticate(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type registerResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.issue(user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, registerResponse{AccessToken: token, User: user})
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Authenticate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.issue(user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	state, err := h.game.GetCurrentState(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, state)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	info, err := h.game.ActiveSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, info)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", ErrBadRequest))
			return
		}
		limit = n
	}
	entries, err := h.users.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, entries)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	res, err := h.game.StartSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, res)
}

type joinRequest struct {
	PickedNumber *int `json:"pickedNumber"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.PickedNumber == nil {
		h.writeError(w, r, fmt.Errorf("%w: pickedNumber is required", ErrBadRequest))
		return
	}
	id, _ := auth.FromContext(r.Context())
	res, err := h.game.JoinLobby(r.Context(), id.UserID, id.Username, *req.PickedNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, res)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	res, err := h.game.LeaveLobby(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, res)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	res, err := h.game.EndSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, res)
}

func (h *Handler) issue(user *models.User) (string, error) {
	return h.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username, Email: user.Email})
}

func decode(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
