// Package game exposes the lobby engine as the game.v1.GameService connect RPC service.
package game

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/game/engine"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/game/lobby"
	"github.com/rs/zerolog/log"
)

const ServiceName = "game.v1.GameService"

const (
	StartSessionProcedure = "/" + ServiceName + "/StartSession"
	GetStateProcedure     = "/" + ServiceName + "/GetState"
	JoinLobbyProcedure    = "/" + ServiceName + "/JoinLobby"
	LeaveLobbyProcedure   = "/" + ServiceName + "/LeaveLobby"
	EndSessionProcedure   = "/" + ServiceName + "/EndSession"
)

type StartSessionRequest struct{}

type StartSessionResponse = engine.StartResult

type GetStateRequest struct{}

type GetStateResponse = events.GameState

type JoinLobbyRequest struct {
	PickedNumber int `json:"pickedNumber"`
}

type JoinLobbyResponse = engine.JoinResult

type LeaveLobbyRequest struct{}

type LeaveLobbyResponse = engine.LeaveResult

type EndSessionRequest struct{}

type EndSessionResponse = engine.Resolution

// GameEngine defines what the service layer needs from the engine
type GameEngine interface {
	StartSession(ctx context.Context) (*engine.StartResult, error)
	GetCurrentState(ctx context.Context) (*events.GameState, error)
	JoinLobby(ctx context.Context, userID uuid.UUID, username string, pickedNumber int) (*engine.JoinResult, error)
	LeaveLobby(ctx context.Context, userID uuid.UUID) (*engine.LeaveResult, error)
	EndSession(ctx context.Context) (*engine.Resolution, error)
}

type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Service implements game.v1.GameService
type Service struct {
	engine GameEngine
	tokens TokenVerifier
}

func NewService(engine GameEngine, tokens TokenVerifier) *Service {
	return &Service{engine: engine, tokens: tokens}
}

// Handler returns the mount path and handler for every procedure of the service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(StartSessionProcedure, connect.NewUnaryHandler(StartSessionProcedure, s.StartSession, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, s.GetState, opts...))
	mux.Handle(JoinLobbyProcedure, connect.NewUnaryHandler(JoinLobbyProcedure, s.JoinLobby, opts...))
	mux.Handle(LeaveLobbyProcedure, connect.NewUnaryHandler(LeaveLobbyProcedure, s.LeaveLobby, opts...))
	mux.Handle(EndSessionProcedure, connect.NewUnaryHandler(EndSessionProcedure, s.EndSession, opts...))
	return "/" + ServiceName + "/", mux
}

// StartSession opens a new round
func (s *Service) StartSession(ctx context.Context, req *connect.Request[StartSessionRequest]) (*connect.Response[StartSessionResponse], error) {
	if _, err := s.identity(req.Header()); err != nil {
		return nil, err
	}
	res, err := s.engine.StartSession(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

// GetState returns the current session snapshot
func (s *Service) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error) {
	state, err := s.engine.GetCurrentState(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(state), nil
}

// JoinLobby adds the caller to the lobby, or to the queue while a round runs
func (s *Service) JoinLobby(ctx context.Context, req *connect.Request[JoinLobbyRequest]) (*connect.Response[JoinLobbyResponse], error) {
	id, err := s.identity(req.Header())
	if err != nil {
		return nil, err
	}
	res, err := s.engine.JoinLobby(ctx, id.UserID, id.Username, req.Msg.PickedNumber)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) LeaveLobby(ctx context.Context, req *connect.Request[LeaveLobbyRequest]) (*connect.Response[LeaveLobbyResponse], error) {
	id, err := s.identity(req.Header())
	if err != nil {
		return nil, err
	}
	res, err := s.engine.LeaveLobby(ctx, id.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

// EndSession resolves the running round immediately
func (s *Service) EndSession(ctx context.Context, req *connect.Request[EndSessionRequest]) (*connect.Response[EndSessionResponse], error) {
	if _, err := s.identity(req.Header()); err != nil {
		return nil, err
	}
	res, err := s.engine.EndSession(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) identity(header http.Header) (auth.Identity, error) {
	raw, ok := auth.BearerToken(header.Get("Authorization"))
	if !ok {
		return auth.Identity{}, connect.NewError(connect.CodeUnauthenticated, errors.New("missing bearer token"))
	}
	id, err := s.tokens.Verify(raw)
	if err != nil {
		return auth.Identity{}, connect.NewError(connect.CodeUnauthenticated, err)
	}
	return id, nil
}

// toConnectError classifies engine and lobby errors into connect codes.
func toConnectError(err error) error {
	var conflict *engine.ConflictError
	switch {
	case errors.As(err, &conflict):
		cerr := connect.NewError(connect.CodeAlreadyExists, err)
		cerr.Meta().Set("Session-Ends-At", conflict.EndsAt.UTC().Format(time.RFC3339Nano))
		return cerr
	case errors.Is(err, lobby.ErrDuplicateJoin):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, engine.ErrNoActiveSession), errors.Is(err, lobby.ErrNotInLobby):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, lobby.ErrInvalidNumber), errors.Is(err, lobby.ErrInvalidPlayer):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	log.Error().Err(err).Msg("game service request failed")
	return connect.NewError(connect.CodeInternal, err)
}
