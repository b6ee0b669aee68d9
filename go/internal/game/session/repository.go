// Package session persists game rounds.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/gamedb"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/mcdev12/luckydraw/go/internal/sqlutil"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrActiveExists = errors.New("an active session already exists")
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetActiveSession(ctx context.Context) (gamedb.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (gamedb.Session, error)
	CreateSession(ctx context.Context, arg gamedb.CreateSessionParams) (gamedb.Session, error)
	ResolveSession(ctx context.Context, arg gamedb.ResolveSessionParams) (int64, error)
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// GetActive returns the active session or ErrNotFound.
func (r *Repository) GetActive(ctx context.Context) (*models.Session, error) {
	row, err := r.queries.GetActiveSession(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return dbSessionToModel(row)
}

// Create inserts an active session. The partial unique index on is_active makes
// this the single point of mutual exclusion across processes.
func (r *Repository) Create(ctx context.Context, startedAt, endsAt time.Time, players []models.PlayerEntry) (*models.Session, error) {
	if players == nil {
		players = []models.PlayerEntry{}
	}
	snapshot, err := sqlutil.ToNullJSON(players)
	if err != nil {
		return nil, err
	}
	row, err := r.queries.CreateSession(ctx, gamedb.CreateSessionParams{
		ID:        uuid.New(),
		StartedAt: startedAt,
		EndsAt:    endsAt,
		Players:   snapshot,
	})
	if gamedb.IsUniqueViolation(err) {
		return nil, ErrActiveExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return dbSessionToModel(row)
}

// Resolve closes the session if it is still active and reports whether this call did it.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, winningNumber int, resolvedAt time.Time) (bool, error) {
	n, err := r.queries.ResolveSession(ctx, gamedb.ResolveSessionParams{
		ID:            id,
		WinningNumber: int32(winningNumber),
		ResolvedAt:    resolvedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to resolve session: %w", err)
	}
	return n == 1, nil
}

func dbSessionToModel(row gamedb.Session) (*models.Session, error) {
	players, err := sqlutil.FromNullJSON[models.PlayerEntry](row.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session players: %w", err)
	}
	return &models.Session{
		ID:            row.ID,
		IsActive:      row.IsActive,
		StartedAt:     row.StartedAt,
		EndsAt:        row.EndsAt,
		Players:       players,
		WinningNumber: sqlutil.FromSqlInt32(row.WinningNumber),
		ResolvedAt:    sqlutil.FromSqlTime(row.ResolvedAt),
	}, nil
}
