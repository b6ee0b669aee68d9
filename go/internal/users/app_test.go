package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsersRepository struct {
	mock.Mock
}

func (m *MockUsersRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsersRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsersRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsersRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsersRepository) RecordWin(ctx context.Context, userID uuid.UUID, score int, at time.Time) (int, error) {
	args := m.Called(ctx, userID, score, at)
	return args.Int(0), args.Error(1)
}

func (m *MockUsersRepository) RecordLoss(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUsersRepository) WinHistory(ctx context.Context, userID uuid.UUID) ([]models.WinRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.WinRecord), args.Error(1)
}

func (m *MockUsersRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores hashed password", func(t *testing.T) {
		repo := new(MockUsersRepository)
		repo.On("GetUserByUsername", ctx, "alice").Return(nil, ErrUserNotFound)
		repo.On("GetUserByEmail", ctx, "alice@example.com").Return(nil, ErrUserNotFound)
		repo.On("CreateUser", ctx, "alice", "alice@example.com", mock.MatchedBy(func(hash string) bool {
			return auth.CheckPassword(hash, "secret1") == nil
		})).Return(&models.User{ID: uuid.New(), Username: "alice"}, nil)

		user, err := NewApp(repo, nil).Register(ctx, CreateUserRequest{
			Username: " alice ",
			Email:    "alice@example.com",
			Password: "secret1",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		repo.AssertExpectations(t)
	})

	t.Run("username taken", func(t *testing.T) {
		repo := new(MockUsersRepository)
		repo.On("GetUserByUsername", ctx, "alice").Return(&models.User{Username: "alice"}, nil)

		_, err := NewApp(repo, nil).Register(ctx, CreateUserRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "secret1",
		})
		assert.ErrorIs(t, err, ErrUsernameTaken)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("email taken", func(t *testing.T) {
		repo := new(MockUsersRepository)
		repo.On("GetUserByUsername", ctx, "alice").Return(nil, ErrUserNotFound)
		repo.On("GetUserByEmail", ctx, "alice@example.com").Return(&models.User{}, nil)

		_, err := NewApp(repo, nil).Register(ctx, CreateUserRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "secret1",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []CreateUserRequest{
			{Email: "a@b.c", Password: "secret1"},
			{Username: "a", Password: "secret1"},
			{Username: "a", Email: "nope", Password: "secret1"},
			{Username: "a", Email: "a@b.c", Password: "123"},
		}
		for _, req := range tests {
			_, err := NewApp(new(MockUsersRepository), nil).Register(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)

	repo := new(MockUsersRepository)
	repo.On("GetUserByUsername", ctx, "alice").Return(&models.User{Username: "alice", PasswordHash: hash}, nil)
	repo.On("GetUserByUsername", ctx, "bob").Return(nil, ErrUserNotFound)
	app := NewApp(repo, nil)

	user, err := app.Authenticate(ctx, LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = app.Authenticate(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = app.Authenticate(ctx, LoginRequest{Username: "bob", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRecordResults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	repo := new(MockUsersRepository)
	repo.On("RecordWin", ctx, id, 10, now).Return(3, nil)
	repo.On("RecordLoss", ctx, id).Return(errors.New("boom"))
	app := NewApp(repo, clockwork.NewFakeClockAt(now))

	require.NoError(t, app.RecordWin(ctx, id, 10))
	err := app.RecordLoss(ctx, id)
	assert.ErrorContains(t, err, "boom")
	repo.AssertExpectations(t)
}

func TestLeaderboardDefaultLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUsersRepository)
	repo.On("Leaderboard", ctx, DefaultLeaderboardSize).Return([]models.LeaderboardEntry{{Username: "alice", Wins: 2}}, nil)

	got, err := NewApp(repo, nil).Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
