package lobby

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LobbyRepository defines what the app layer needs from the repository
type LobbyRepository interface {
	Get(ctx context.Context) (*models.Lobby, error)
	Mutate(ctx context.Context, fn func(l *models.Lobby) error) (*models.Lobby, error)
}

// Placement says which lobby sequence an entry was in.
type Placement string

const (
	PlacementPlayers Placement = "players"
	PlacementQueue   Placement = "queue"
)

// App handles lobby admission rules.
type App struct {
	repo      LobbyRepository
	minNumber int
	maxNumber int
}

func NewApp(repo LobbyRepository, minNumber, maxNumber int) *App {
	return &App{
		repo:      repo,
		minNumber: minNumber,
		maxNumber: maxNumber,
	}
}

// Join appends entry to the players, or to the queue when queued is set.
// A user already present in either sequence is rejected and the lobby is left unchanged.
func (a *App) Join(ctx context.Context, entry models.PlayerEntry, queued bool) (*models.Lobby, error) {
	if err := a.validateEntry(entry); err != nil {
		return nil, err
	}

	lobby, err := a.repo.Mutate(ctx, func(l *models.Lobby) error {
		if l.Contains(entry.UserID) {
			return ErrDuplicateJoin
		}
		if queued {
			l.Queue = append(l.Queue, entry)
		} else {
			l.Players = append(l.Players, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join lobby: %w", err)
	}

	log.Info().
		Str("user_id", entry.UserID.String()).
		Int("picked_number", entry.PickedNumber).
		Bool("queued", queued).
		Msg("player joined lobby")
	return lobby, nil
}

// Leave removes userID from the players if present, otherwise from the queue.
func (a *App) Leave(ctx context.Context, userID uuid.UUID) (Placement, *models.Lobby, error) {
	var placement Placement
	lobby, err := a.repo.Mutate(ctx, func(l *models.Lobby) error {
		if i := models.IndexOfPlayer(l.Players, userID); i >= 0 {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			placement = PlacementPlayers
			return nil
		}
		if i := models.IndexOfPlayer(l.Queue, userID); i >= 0 {
			l.Queue = append(l.Queue[:i], l.Queue[i+1:]...)
			placement = PlacementQueue
			return nil
		}
		return ErrNotInLobby
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to leave lobby: %w", err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("from", string(placement)).
		Msg("player left lobby")
	return placement, lobby, nil
}

// Snapshot returns the current lobby.
func (a *App) Snapshot(ctx context.Context) (*models.Lobby, error) {
	lobby, err := a.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lobby: %w", err)
	}
	return lobby, nil
}

// ReleasePlayers removes the given users from the players and keeps the
// queue. Players not listed, such as those who joined after a session
// snapshot, stay for the next round.
func (a *App) ReleasePlayers(ctx context.Context, userIDs []uuid.UUID) (*models.Lobby, error) {
	release := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		release[id] = struct{}{}
	}
	lobby, err := a.repo.Mutate(ctx, func(l *models.Lobby) error {
		kept := make([]models.PlayerEntry, 0, len(l.Players))
		for _, p := range l.Players {
			if _, ok := release[p.UserID]; !ok {
				kept = append(kept, p)
			}
		}
		l.Players = kept
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to release lobby players: %w", err)
	}
	return lobby, nil
}

// PromoteQueue moves the queue into the players and empties the queue.
func (a *App) PromoteQueue(ctx context.Context) (*models.Lobby, error) {
	lobby, err := a.repo.Mutate(ctx, func(l *models.Lobby) error {
		for _, e := range l.Queue {
			if models.IndexOfPlayer(l.Players, e.UserID) < 0 {
				l.Players = append(l.Players, e)
			}
		}
		l.Queue = []models.PlayerEntry{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to promote lobby queue: %w", err)
	}
	return lobby, nil
}

// InRange reports whether n is a valid pick.
func (a *App) InRange(n int) bool {
	return n >= a.minNumber && n <= a.maxNumber
}

func (a *App) validateEntry(entry models.PlayerEntry) error {
	if entry.UserID == uuid.Nil || entry.Username == "" {
		return ErrInvalidPlayer
	}
	if !a.InRange(entry.PickedNumber) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidNumber, entry.PickedNumber, a.minNumber, a.maxNumber)
	}
	return nil
}
