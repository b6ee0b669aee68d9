package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/rs/zerolog/log"
)

const DefaultLeaderboardSize = 10

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	RecordWin(ctx context.Context, userID uuid.UUID, score int, at time.Time) (int, error)
	RecordLoss(ctx context.Context, userID uuid.UUID) error
	WinHistory(ctx context.Context, userID uuid.UUID) ([]models.WinRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// App handles users business logic
type App struct {
	repo  UsersRepository
	clock clockwork.Clock
}

// NewApp creates a new users App
func NewApp(repo UsersRepository, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// Register validates the request, rejects taken usernames and emails and
// stores the user with a bcrypt hash of the password.
func (a *App) Register(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateCreateUserRequest(req); err != nil {
		return nil, err
	}

	if _, err := a.repo.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("user with username %s already exists: %w", req.Username, ErrUsernameTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if _, err := a.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("user with email %s already exists: %w", req.Email, ErrEmailTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := a.repo.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("registered user")
	return user, nil
}

// Authenticate checks a username/password pair.
func (a *App) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	user, err := a.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: invalid username", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, fmt.Errorf("%w: invalid password", ErrInvalidCredentials)
		}
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// RecordWin credits a session win worth score points.
func (a *App) RecordWin(ctx context.Context, userID uuid.UUID, score int) error {
	streak, err := a.repo.RecordWin(ctx, userID, score, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to record win for %s: %w", userID, err)
	}
	log.Debug().Str("user_id", userID.String()).Int("streak", streak).Msg("recorded win")
	return nil
}

// RecordLoss resets the streak of a player who did not win.
func (a *App) RecordLoss(ctx context.Context, userID uuid.UUID) error {
	if err := a.repo.RecordLoss(ctx, userID); err != nil {
		return fmt.Errorf("failed to record loss for %s: %w", userID, err)
	}
	return nil
}

func (a *App) WinHistory(ctx context.Context, userID uuid.UUID) ([]models.WinRecord, error) {
	return a.repo.WinHistory(ctx, userID)
}

// Leaderboard returns the top players by wins. A non-positive limit means
// DefaultLeaderboardSize.
func (a *App) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	return a.repo.Leaderboard(ctx, limit)
}

func validateCreateUserRequest(req CreateUserRequest) error {
	if req.Username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	at := strings.Index(req.Email, "@")
	if at < 1 || !strings.Contains(req.Email[at:], ".") {
		return fmt.Errorf("%w: email format is invalid", ErrValidation)
	}
	if len(req.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}
