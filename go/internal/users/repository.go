package users

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

// Repository implements user data access operations
type Repository struct {
	db      *sql.DB
	queries *gamedb.Queries
}

// NewRepository creates a new users repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gamedb.New(db),
	}
}

// CreateUser inserts a user with an already hashed password.
func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user, err := r.queries.CreateUser(ctx, gamedb.CreateUserParams{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if gamedb.IsUniqueViolation(err) {
			if gamedb.ConstraintName(err) == "users_email_key" {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "failed to get user")
	}
	return dbUserToModel(user), nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "failed to get user by username")
	}
	return dbUserToModel(user), nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "failed to get user by email")
	}
	return dbUserToModel(user), nil
}

// RecordWin bumps the streak counters and appends the win history row in
// one transaction. It returns the new streak.
func (r *Repository) RecordWin(ctx context.Context, userID uuid.UUID, score int, at time.Time) (int, error) {
	return sqlutil.InTx(ctx, r.db, r.queries.WithTx, func(q *gamedb.Queries) (int, error) {
		streak, err := q.ApplyWin(ctx, userID)
		if err != nil {
			return 0, notFound(err, "failed to apply win")
		}
		if err := q.InsertWinHistory(ctx, gamedb.InsertWinHistoryParams{
			UserID: userID,
			WonAt:  at,
			Score:  int32(score),
		}); err != nil {
			return 0, fmt.Errorf("failed to insert win history: %w", err)
		}
		return int(streak), nil
	})
}

// RecordLoss resets the streak and counts the game.
func (r *Repository) RecordLoss(ctx context.Context, userID uuid.UUID) error {
	n, err := r.queries.ApplyLoss(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to apply loss: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) WinHistory(ctx context.Context, userID uuid.UUID) ([]models.WinRecord, error) {
	rows, err := r.queries.ListWinHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list win history: %w", err)
	}
	out := make([]models.WinRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.WinRecord{Date: row.WonAt, Score: int(row.Score)})
	}
	return out, nil
}

func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.queries.Leaderboard(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	out := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.LeaderboardEntry{
			UserID:        row.UserID,
			Username:      row.Username,
			Wins:          int(row.Wins),
			LongestStreak: int(row.LongestStreak),
		})
	}
	return out, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// dbUserToModel converts a database user to domain model
func dbUserToModel(u gamedb.User) *models.User {
	return &models.User{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		CreatedAt:        u.CreatedAt,
		Streak:           int(u.Streak),
		LongestWinStreak: int(u.LongestWinStreak),
		TotalGamesPlayed: int(u.TotalGamesPlayed),
	}
}
