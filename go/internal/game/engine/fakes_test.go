package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/game/session"
	"github.com/mcdev12/luckydraw/go/internal/models"
)

// memoryLobby mimics the row-locked transaction of lobby.Repository.
type memoryLobby struct {
	mu    sync.Mutex
	lobby models.Lobby
}

func newMemoryLobby() *memoryLobby {
	return &memoryLobby{lobby: models.Lobby{ID: uuid.New(), Players: []models.PlayerEntry{}, Queue: []models.PlayerEntry{}}}
}

func (r *memoryLobby) copyLocked() *models.Lobby {
	l := r.lobby
	l.Players = append([]models.PlayerEntry{}, r.lobby.Players...)
	l.Queue = append([]models.PlayerEntry{}, r.lobby.Queue...)
	return &l
}

func (r *memoryLobby) Get(ctx context.Context) (*models.Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked(), nil
}

func (r *memoryLobby) Mutate(ctx context.Context, fn func(l *models.Lobby) error) (*models.Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.copyLocked()
	if err := fn(work); err != nil {
		return nil, err
	}
	r.lobby = *work
	return r.copyLocked(), nil
}

// memorySessions honours the single-active and conditional-resolve rules of
// the database.
type memorySessions struct {
	mu       sync.Mutex
	sessions []models.Session
	creates  int
	getErr   error
}

func (s *memorySessions) GetActive(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	for i := range s.sessions {
		if s.sessions[i].IsActive {
			return copySession(s.sessions[i]), nil
		}
	}
	return nil, session.ErrNotFound
}

func (s *memorySessions) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return copySession(s.sessions[i]), nil
		}
	}
	return nil, session.ErrNotFound
}

func (s *memorySessions) Create(ctx context.Context, startedAt, endsAt time.Time, players []models.PlayerEntry) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].IsActive {
			return nil, session.ErrActiveExists
		}
	}
	if players == nil {
		players = []models.PlayerEntry{}
	}
	created := models.Session{
		ID:        uuid.New(),
		IsActive:  true,
		StartedAt: startedAt,
		EndsAt:    endsAt,
		Players:   append([]models.PlayerEntry{}, players...),
	}
	s.sessions = append(s.sessions, created)
	s.creates++
	return copySession(created), nil
}

func (s *memorySessions) Resolve(ctx context.Context, id uuid.UUID, winningNumber int, resolvedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == id && s.sessions[i].IsActive {
			s.sessions[i].IsActive = false
			s.sessions[i].WinningNumber = &winningNumber
			s.sessions[i].ResolvedAt = &resolvedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *memorySessions) insert(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sess)
}

func (s *memorySessions) all() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Session{}, s.sessions...)
}

func (s *memorySessions) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

func copySession(s models.Session) *models.Session {
	s.Players = append([]models.PlayerEntry{}, s.Players...)
	return &s
}

type recordCall struct {
	userID uuid.UUID
	win    bool
	score  int
}

type fakeRecords struct {
	mu     sync.Mutex
	calls  []recordCall
	failOn map[uuid.UUID]bool
}

func (f *fakeRecords) RecordWin(ctx context.Context, userID uuid.UUID, score int) error {
	return f.record(recordCall{userID: userID, win: true, score: score})
}

func (f *fakeRecords) RecordLoss(ctx context.Context, userID uuid.UUID) error {
	return f.record(recordCall{userID: userID})
}

func (f *fakeRecords) record(c recordCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[c.userID] {
		return errors.New("store unavailable")
	}
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeRecords) recorded() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall{}, f.calls...)
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []*events.Message
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, msg *events.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *fakeBroadcaster) ofType(t events.Type) []*events.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*events.Message
	for _, m := range b.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (b *fakeBroadcaster) types() []events.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Type, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.Type)
	}
	return out
}

type fakeRecipient struct {
	msgs []*events.Message
}

func (r *fakeRecipient) Send(msg *events.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}
