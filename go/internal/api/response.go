// Package api serves the REST surface under /api/v1.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope wraps every successful response.
type Envelope struct {
	Status    string    `json:"status"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// ErrorEnvelope wraps every failed response. EndsAt is set when a start
// request collides with a running session.
type ErrorEnvelope struct {
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
	Path      string     `json:"path"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Envelope{
		Status:    statusSuccess,
		Data:      data,
		Timestamp: h.clock.Now().UTC(),
		Path:      r.URL.Path,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, endsAt := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, ErrorEnvelope{
		Status:    statusError,
		Message:   message,
		Timestamp: h.clock.Now().UTC(),
		Path:      r.URL.Path,
		EndsAt:    endsAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
