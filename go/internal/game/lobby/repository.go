package lobby

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/gamedb"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/mcdev12/luckydraw/go/internal/sqlutil"
)

// Repository stores the singleton lobby row.
type Repository struct {
	db      *sql.DB
	queries *gamedb.Queries
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gamedb.New(db),
	}
}

// Get reads the lobby, creating it on first access.
func (r *Repository) Get(ctx context.Context) (*models.Lobby, error) {
	if err := r.queries.EnsureLobby(ctx, uuid.New()); err != nil {
		return nil, fmt.Errorf("failed to ensure lobby: %w", err)
	}
	row, err := r.queries.GetLobby(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby: %w", err)
	}
	return dbLobbyToModel(row)
}

// Mutate re-reads the lobby under a row lock, applies fn and writes the result
// in one transaction. Nothing is written when fn fails.
func (r *Repository) Mutate(ctx context.Context, fn func(l *models.Lobby) error) (*models.Lobby, error) {
	return sqlutil.InTx(ctx, r.db, r.queries.WithTx, func(q *gamedb.Queries) (*models.Lobby, error) {
		if err := q.EnsureLobby(ctx, uuid.New()); err != nil {
			return nil, fmt.Errorf("failed to ensure lobby: %w", err)
		}
		row, err := q.GetLobbyForUpdate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to lock lobby: %w", err)
		}
		lobby, err := dbLobbyToModel(row)
		if err != nil {
			return nil, err
		}

		if err := fn(lobby); err != nil {
			return nil, err
		}

		players, err := sqlutil.ToNullJSON(lobby.Players)
		if err != nil {
			return nil, err
		}
		queue, err := sqlutil.ToNullJSON(lobby.Queue)
		if err != nil {
			return nil, err
		}
		updated, err := q.UpdateLobby(ctx, gamedb.UpdateLobbyParams{
			ID:      lobby.ID,
			Players: players,
			Queue:   queue,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update lobby: %w", err)
		}
		return dbLobbyToModel(updated)
	})
}

func dbLobbyToModel(row gamedb.Lobby) (*models.Lobby, error) {
	players, err := sqlutil.FromNullJSON[models.PlayerEntry](row.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lobby players: %w", err)
	}
	queue, err := sqlutil.FromNullJSON[models.PlayerEntry](row.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lobby queue: %w", err)
	}
	return &models.Lobby{
		ID:        row.ID,
		Players:   players,
		Queue:     queue,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
