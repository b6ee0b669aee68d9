// Package engine runs the session lifecycle: timed rounds, admission to the
// lobby, winner resolution and the broadcasts that go with each step.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/config"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/game/lobby"
	"github.com/mcdev12/luckydraw/go/internal/game/session"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// LobbyStore defines what the engine needs from the lobby app
type LobbyStore interface {
	Join(ctx context.Context, entry models.PlayerEntry, queued bool) (*models.Lobby, error)
	Leave(ctx context.Context, userID uuid.UUID) (lobby.Placement, *models.Lobby, error)
	Snapshot(ctx context.Context) (*models.Lobby, error)
	ReleasePlayers(ctx context.Context, userIDs []uuid.UUID) (*models.Lobby, error)
	PromoteQueue(ctx context.Context) (*models.Lobby, error)
}

// SessionStore defines what the engine needs from the session repository
type SessionStore interface {
	GetActive(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Create(ctx context.Context, startedAt, endsAt time.Time, players []models.PlayerEntry) (*models.Session, error)
	Resolve(ctx context.Context, id uuid.UUID, winningNumber int, resolvedAt time.Time) (bool, error)
}

// RecordUpdater applies per-player results after a round.
type RecordUpdater interface {
	RecordWin(ctx context.Context, userID uuid.UUID, score int) error
	RecordLoss(ctx context.Context, userID uuid.UUID) error
}

// Broadcaster fans a message out to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *events.Message) error
}

// Recipient is a single connected client.
type Recipient interface {
	Send(msg *events.Message) error
}

// Drawer picks the winning number in [lo, hi].
type Drawer func(lo, hi int) int

func uniformDraw(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDrawer replaces the uniform random draw.
func WithDrawer(d Drawer) Option {
	return func(e *Engine) { e.draw = d }
}

// WithSchedule shares a Schedule with the caller.
func WithSchedule(s *Schedule) Option {
	return func(e *Engine) { e.schedule = s }
}

// Engine drives sessions through start, resolution and the gap before the
// next one. Storage is the source of truth; the Schedule only caches the
// next deadline.
type Engine struct {
	lobby       LobbyStore
	sessions    SessionStore
	records     RecordUpdater
	broadcaster Broadcaster
	settings    config.GameSettings
	clock       Clock
	draw        Drawer
	schedule    *Schedule
	instanceID  string // short ID for logging
}

func NewEngine(lobbyStore LobbyStore, sessions SessionStore, records RecordUpdater, broadcaster Broadcaster, settings config.GameSettings, opts ...Option) *Engine {
	e := &Engine{
		lobby:       lobbyStore,
		sessions:    sessions,
		records:     records,
		broadcaster: broadcaster,
		settings:    settings,
		clock:       clockwork.NewRealClock(),
		draw:        uniformDraw,
		schedule:    NewSchedule(),
		instanceID:  uuid.New().String()[:8],
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartResult describes a freshly opened session.
type StartResult struct {
	Session             *models.Session `json:"session"`
	NextSessionStartsAt time.Time       `json:"nextSessionStartsAt"`
}

// JoinResult is returned to a player entering the lobby.
type JoinResult struct {
	Message      string `json:"message"`
	PickedNumber int    `json:"pickedNumber"`
	Queued       bool   `json:"queued"`
}

type LeaveResult struct {
	Message string `json:"message"`
}

// ActiveSessionInfo is the active session, if any, and the next start.
type ActiveSessionInfo struct {
	ActiveSession       *models.Session `json:"activeSession"`
	NextSessionStartsAt *time.Time      `json:"nextSessionStartsAt"`
}

// StartSession opens a round with the current lobby players. A running
// session yields a *ConflictError carrying its end time.
func (e *Engine) StartSession(ctx context.Context) (*StartResult, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, &ConflictError{SessionID: active.ID.String(), EndsAt: active.EndsAt}
	}

	snapshot, err := e.lobby.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot lobby: %w", err)
	}

	now := e.clock.Now()
	endsAt := now.Add(e.settings.SessionDuration)
	created, err := e.sessions.Create(ctx, now, endsAt, snapshot.Players)
	if errors.Is(err, session.ErrActiveExists) {
		// lost the insert race to another caller
		winner, getErr := e.activeSession(ctx)
		if getErr != nil || winner == nil {
			return nil, &ConflictError{EndsAt: endsAt}
		}
		return nil, &ConflictError{SessionID: winner.ID.String(), EndsAt: winner.EndsAt}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	next := created.EndsAt.Add(e.settings.GapBetweenSessions)
	e.schedule.SetNext(next)

	log.Info().
		Str("session_id", created.ID.String()).
		Str("instance", e.instanceID).
		Int("players", len(created.Players)).
		Time("ends_at", created.EndsAt).
		Msg("session started")

	e.broadcast(ctx, events.TypeSessionStarted, events.SessionStartedPayload{
		StartedAt:           created.StartedAt,
		EndsAt:              created.EndsAt,
		NextSessionStartsAt: next,
	})

	return &StartResult{Session: created, NextSessionStartsAt: next}, nil
}

// GetCurrentState reads the state shown to clients. It has no side effects.
func (e *Engine) GetCurrentState(ctx context.Context) (*events.GameState, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()

	if active != nil {
		startedAt, endsAt := active.StartedAt, active.EndsAt
		remaining := remainingMillis(endsAt, now)
		return &events.GameState{
			Status:        models.SessionStatusActive,
			StartedAt:     &startedAt,
			EndsAt:        &endsAt,
			RemainingTime: &remaining,
		}, nil
	}

	state := &events.GameState{Status: models.SessionStatusWaiting}
	if next, ok := e.schedule.Next(); ok {
		remaining := remainingMillis(next, now)
		state.NextSessionStartsAt = &next
		state.RemainingTime = &remaining
	}
	return state, nil
}

// ActiveSession returns the running session, or nil, with the next start time.
func (e *Engine) ActiveSession(ctx context.Context) (*ActiveSessionInfo, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	info := &ActiveSessionInfo{ActiveSession: active}
	if next, ok := e.schedule.Next(); ok {
		info.NextSessionStartsAt = &next
	}
	return info, nil
}

// EndSession resolves the running session now instead of at its deadline.
func (e *Engine) EndSession(ctx context.Context) (*Resolution, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}
	res, err := e.ResolveAndScheduleNext(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		// resolved concurrently by the scheduler or another instance
		return nil, ErrNoActiveSession
	}
	return res, nil
}

// JoinLobby admits a player. While a session runs the player is queued for
// the next one.
func (e *Engine) JoinLobby(ctx context.Context, userID uuid.UUID, username string, pickedNumber int) (*JoinResult, error) {
	active, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	queued := active != nil

	entry := models.PlayerEntry{UserID: userID, Username: username, PickedNumber: pickedNumber}
	updated, err := e.lobby.Join(ctx, entry, queued)
	if err != nil {
		return nil, err
	}

	e.broadcastPlayers(ctx, updated.Everyone())

	result := &JoinResult{
		Message:      "Joined the lobby",
		PickedNumber: pickedNumber,
		Queued:       queued,
	}
	if queued {
		result.Message = "Queued for the next session"
	}
	return result, nil
}

// LeaveLobby removes a player from the lobby or the queue.
func (e *Engine) LeaveLobby(ctx context.Context, userID uuid.UUID) (*LeaveResult, error) {
	placement, updated, err := e.lobby.Leave(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.broadcastPlayers(ctx, updated.Everyone())

	if placement == lobby.PlacementQueue {
		return &LeaveResult{Message: "Left queue"}, nil
	}
	return &LeaveResult{Message: "Left lobby"}, nil
}

// LobbyPlayers returns the players of the current lobby.
func (e *Engine) LobbyPlayers(ctx context.Context) ([]models.PlayerEntry, error) {
	snapshot, err := e.lobby.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot lobby: %w", err)
	}
	return snapshot.Players, nil
}

// SyncClient pushes the lobby and the current state to one client.
func (e *Engine) SyncClient(ctx context.Context, client Recipient) error {
	players, err := e.LobbyPlayers(ctx)
	if err != nil {
		return err
	}
	state, err := e.GetCurrentState(ctx)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	playersMsg, err := events.NewMessage(events.TypePlayersInLobby, events.PlayersInLobbyPayload{Players: players}, now)
	if err != nil {
		return err
	}
	stateMsg, err := events.NewMessage(events.TypeGameState, state, now)
	if err != nil {
		return err
	}
	if err := client.Send(playersMsg); err != nil {
		return err
	}
	return client.Send(stateMsg)
}

// Schedule exposes the engine's schedule.
func (e *Engine) Schedule() *Schedule {
	return e.schedule
}

func (e *Engine) activeSession(ctx context.Context) (*models.Session, error) {
	active, err := e.sessions.GetActive(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return active, nil
}

func (e *Engine) broadcastPlayers(ctx context.Context, players []models.PlayerEntry) {
	if players == nil {
		players = []models.PlayerEntry{}
	}
	e.broadcast(ctx, events.TypePlayersInLobby, events.PlayersInLobbyPayload{Players: players})
}

// broadcast is best effort; a failed broadcast never fails the operation.
func (e *Engine) broadcast(ctx context.Context, t events.Type, payload any) {
	msg, err := events.NewMessage(t, payload, e.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to build event")
		return
	}
	if err := e.broadcaster.Broadcast(ctx, msg); err != nil {
		log.Error().Err(err).Str("type", string(t)).Str("instance", e.instanceID).Msg("failed to broadcast event")
	}
}

func remainingMillis(deadline, now time.Time) int64 {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
