package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/game/engine"
	"github.com/mcdev12/luckydraw/go/internal/game/lobby"
	"github.com/mcdev12/luckydraw/go/internal/users"
)

var ErrBadRequest = errors.New("malformed request body")

// classify maps domain errors to a status code and client-facing message.
func classify(err error) (int, string, *time.Time) {
	var conflict *engine.ConflictError
	switch {
	case errors.As(err, &conflict):
		endsAt := conflict.EndsAt.UTC()
		return http.StatusConflict, "A session is already active", &endsAt
	case errors.Is(err, engine.ErrNoActiveSession):
		return http.StatusNotFound, "No active session", nil
	case errors.Is(err, lobby.ErrDuplicateJoin):
		return http.StatusConflict, "User already in the lobby", nil
	case errors.Is(err, lobby.ErrNotInLobby):
		return http.StatusNotFound, "User not in this lobby", nil
	case errors.Is(err, lobby.ErrInvalidNumber), errors.Is(err, lobby.ErrInvalidPlayer):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, users.ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, users.ErrUsernameTaken), errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict, err.Error(), nil
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials", nil
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized", nil
	case errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound, "User not found", nil
	}
	return http.StatusInternalServerError, "Internal server error", nil
}
