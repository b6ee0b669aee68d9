package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/internal/config"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/mcdev12/luckydraw/go/internal/game/lobby"
	"github.com/mcdev12/luckydraw/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	engine      *Engine
	clock       *clockwork.FakeClock
	lobby       *lobby.App
	sessions    *memorySessions
	records     *fakeRecords
	broadcaster *fakeBroadcaster
	drawn       int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:       clockwork.NewFakeClockAt(epoch),
		lobby:       lobby.NewApp(newMemoryLobby(), 1, 10),
		sessions:    &memorySessions{},
		records:     &fakeRecords{failOn: map[uuid.UUID]bool{}},
		broadcaster: &fakeBroadcaster{},
		drawn:       5,
	}
	h.engine = NewEngine(h.lobby, h.sessions, h.records, h.broadcaster, config.DefaultGameSettings(),
		WithClock(h.clock),
		WithDrawer(func(lo, hi int) int { return h.drawn }),
	)
	return h
}

func player(name string, n int) models.PlayerEntry {
	return models.PlayerEntry{UserID: uuid.New(), Username: name, PickedNumber: n}
}

func (h *harness) join(t *testing.T, p models.PlayerEntry) *JoinResult {
	t.Helper()
	res, err := h.engine.JoinLobby(context.Background(), p.UserID, p.Username, p.PickedNumber)
	require.NoError(t, err)
	return res
}

func TestStartSessionWithEmptyLobby(t *testing.T) {
	h := newHarness(t)

	res, err := h.engine.StartSession(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Session.IsActive)
	assert.Empty(t, res.Session.Players)
	assert.Equal(t, epoch.Add(20*time.Second), res.Session.EndsAt)
	assert.Equal(t, epoch.Add(50*time.Second), res.NextSessionStartsAt)

	started := h.broadcaster.ofType(events.TypeSessionStarted)
	require.Len(t, started, 1)
	payload, err := events.ParsePayload(started[0])
	require.NoError(t, err)
	assert.True(t, payload.(events.SessionStartedPayload).EndsAt.Equal(res.Session.EndsAt))

	next, ok := h.engine.Schedule().Next()
	require.True(t, ok)
	assert.Equal(t, res.NextSessionStartsAt, next)
}

func TestStartSessionSnapshotsLobby(t *testing.T) {
	h := newHarness(t)
	alice := player("alice", 7)
	h.join(t, alice)

	res, err := h.engine.StartSession(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff([]models.PlayerEntry{alice}, res.Session.Players); diff != "" {
		t.Errorf("session players mismatch (-want +got):\n%s", diff)
	}
}

func TestStartSessionConflict(t *testing.T) {
	h := newHarness(t)
	first, err := h.engine.StartSession(context.Background())
	require.NoError(t, err)

	_, err = h.engine.StartSession(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.Session.EndsAt, conflict.EndsAt)
	assert.Len(t, h.broadcaster.ofType(events.TypeSessionStarted), 1)
}

func TestConcurrentStartsYieldOneSession(t *testing.T) {
	h := newHarness(t)
	const callers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.StartSession(context.Background())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrSessionAlreadyActive) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, 1, h.sessions.createCount())
}

func TestResolveRecordsWinnersAndLosers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	three := player("bob", 3)
	seven := player("alice", 7)
	h.join(t, three)
	h.join(t, seven)
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	h.drawn = 7
	h.clock.Advance(20 * time.Second)
	res, err := h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 7, res.WinningNumber)
	assert.Equal(t, []models.PlayerEntry{seven}, res.Winners)
	assert.Equal(t, epoch.Add(50*time.Second), res.NextSessionStartsAt)

	assert.ElementsMatch(t, []recordCall{
		{userID: seven.UserID, win: true, score: 10},
		{userID: three.UserID},
	}, h.records.recorded())

	stored := h.sessions.all()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsActive)
	require.NotNil(t, stored[0].WinningNumber)
	assert.Equal(t, 7, *stored[0].WinningNumber)

	players, err := h.engine.LobbyPlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestResolveBroadcastOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.join(t, player("alice", 2))
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	_, err = h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, []events.Type{
		events.TypePlayersInLobby, // join
		events.TypeSessionStarted,
		events.TypePlayersInLobby, // released
		events.TypePlayersInLobby, // promoted
		events.TypeSessionEnded,
	}, h.broadcaster.types())

	ended := h.broadcaster.ofType(events.TypeSessionEnded)
	payload, err := events.ParsePayload(ended[0])
	require.NoError(t, err)
	assert.NotNil(t, payload.(events.SessionEndedPayload).Winners)
}

func TestResolveIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.join(t, player("alice", 5))
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	first, err := h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)

	assert.Len(t, h.records.recorded(), 1)
	assert.Len(t, h.broadcaster.ofType(events.TypeSessionEnded), 1)
}

func TestConcurrentResolveAppliesRecordsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		h.join(t, player("p", i))
	}
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.engine.ResolveAndScheduleNext(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, h.records.recorded(), 4)
	assert.Len(t, h.broadcaster.ofType(events.TypeSessionEnded), 1)
}

func TestResolveSurvivesRecordFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	broken := player("broken", 5)
	fine := player("fine", 5)
	h.records.failOn[broken.UserID] = true
	h.join(t, broken)
	h.join(t, fine)
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	res, err := h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []recordCall{{userID: fine.UserID, win: true, score: 10}}, h.records.recorded())
	assert.False(t, h.sessions.all()[0].IsActive)
	assert.Len(t, h.broadcaster.ofType(events.TypeSessionEnded), 1)
}

func TestResolveWithoutActiveSessionIsNoop(t *testing.T) {
	h := newHarness(t)
	res, err := h.engine.ResolveAndScheduleNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, h.broadcaster.types())
}

func TestLateJoinerPlaysNextRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	late := player("late", 4)
	res := h.join(t, late)
	assert.True(t, res.Queued)

	active, err := h.engine.ActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, models.IndexOfPlayer(active.ActiveSession.Players, late.UserID))

	_, err = h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)

	next, err := h.engine.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerEntry{late}, next.Session.Players)
}

func TestDuplicateJoinRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := player("alice", 3)
	h.join(t, alice)

	_, err := h.engine.JoinLobby(ctx, alice.UserID, alice.Username, 9)
	assert.ErrorIs(t, err, lobby.ErrDuplicateJoin)

	players, err := h.engine.LobbyPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 1)
	assert.Equal(t, 3, players[0].PickedNumber)
}

func TestLeaveLobby(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := player("alice", 3)
	h.join(t, alice)

	res, err := h.engine.LeaveLobby(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Left lobby", res.Message)

	_, err = h.engine.LeaveLobby(ctx, alice.UserID)
	assert.ErrorIs(t, err, lobby.ErrNotInLobby)

	_, err = h.engine.StartSession(ctx)
	require.NoError(t, err)
	h.join(t, alice)
	res, err = h.engine.LeaveLobby(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Left queue", res.Message)
}

func TestGetCurrentState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, err := h.engine.GetCurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusWaiting, state.Status)
	assert.Nil(t, state.RemainingTime)
	assert.Nil(t, state.NextSessionStartsAt)

	_, err = h.engine.StartSession(ctx)
	require.NoError(t, err)
	h.clock.Advance(5 * time.Second)

	state, err = h.engine.GetCurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, state.Status)
	require.NotNil(t, state.RemainingTime)
	assert.Equal(t, int64(15000), *state.RemainingTime)
	assert.Nil(t, state.NextSessionStartsAt)

	h.clock.Advance(15 * time.Second)
	_, err = h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	h.clock.Advance(10 * time.Second)

	state, err = h.engine.GetCurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusWaiting, state.Status)
	require.NotNil(t, state.NextSessionStartsAt)
	assert.Equal(t, epoch.Add(50*time.Second), *state.NextSessionStartsAt)
	assert.Equal(t, int64(20000), *state.RemainingTime)
}

func TestEndSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.EndSession(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = h.engine.StartSession(ctx)
	require.NoError(t, err)
	h.clock.Advance(3 * time.Second)

	res, err := h.engine.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(33*time.Second), res.NextSessionStartsAt)
}

func TestLostClaimAdoptsWinnerSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resolvedAt := epoch.Add(-2 * time.Second)
	n := 4
	id := uuid.New()
	h.sessions.insert(models.Session{ID: id, StartedAt: epoch.Add(-22 * time.Second), EndsAt: resolvedAt, WinningNumber: &n, ResolvedAt: &resolvedAt})

	h.engine.adoptSchedule(ctx, id)

	next, ok := h.engine.Schedule().Next()
	require.True(t, ok)
	assert.Equal(t, resolvedAt.Add(30*time.Second), next)
}

func TestSyncClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.join(t, player("alice", 1))

	client := &fakeRecipient{}
	require.NoError(t, h.engine.SyncClient(ctx, client))

	require.Len(t, client.msgs, 2)
	assert.Equal(t, events.TypePlayersInLobby, client.msgs[0].Type)
	assert.Equal(t, events.TypeGameState, client.msgs[1].Type)

	payload, err := events.ParsePayload(client.msgs[1])
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusWaiting, payload.(events.GameState).Status)
}

// hookRecords runs onLoss the first time a loss is recorded.
type hookRecords struct {
	fakeRecords
	once   sync.Once
	onLoss func()
}

func (r *hookRecords) RecordLoss(ctx context.Context, userID uuid.UUID) error {
	r.once.Do(r.onLoss)
	return r.fakeRecords.RecordLoss(ctx, userID)
}

func TestJoinDuringResolutionKeepsPlayer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := player("alice", 3)
	bob := player("bob", 7)
	h.join(t, alice)

	var (
		joined  *JoinResult
		joinErr error
	)
	records := &hookRecords{fakeRecords: fakeRecords{failOn: map[uuid.UUID]bool{}}}
	eng := NewEngine(h.lobby, h.sessions, records, h.broadcaster, config.DefaultGameSettings(),
		WithClock(h.clock),
		WithDrawer(func(lo, hi int) int { return 9 }),
	)
	records.onLoss = func() {
		joined, joinErr = eng.JoinLobby(ctx, bob.UserID, bob.Username, bob.PickedNumber)
	}

	_, err := eng.StartSession(ctx)
	require.NoError(t, err)
	res, err := eng.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)

	require.NoError(t, joinErr)
	require.NotNil(t, joined)
	assert.False(t, joined.Queued)

	players, err := eng.LobbyPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerEntry{bob}, players)

	next, err := eng.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerEntry{bob}, next.Session.Players)
}

func TestJoinRacingStartIsNeverLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const joiners = 12

	entries := make([]models.PlayerEntry, joiners)
	for i := range entries {
		entries[i] = player("p", i%10+1)
	}

	var (
		wg      sync.WaitGroup
		started *StartResult
	)
	wg.Add(joiners + 1)
	go func() {
		defer wg.Done()
		res, err := h.engine.StartSession(ctx)
		assert.NoError(t, err)
		started = res
	}()
	for _, p := range entries {
		go func() {
			defer wg.Done()
			_, err := h.engine.JoinLobby(ctx, p.UserID, p.Username, p.PickedNumber)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NotNil(t, started)

	snapshot := started.Session.Players
	_, err := h.engine.ResolveAndScheduleNext(ctx)
	require.NoError(t, err)
	players, err := h.engine.LobbyPlayers(ctx)
	require.NoError(t, err)

	for _, p := range entries {
		inSession := models.IndexOfPlayer(snapshot, p.UserID) >= 0
		inLobby := models.IndexOfPlayer(players, p.UserID) >= 0
		assert.True(t, inSession != inLobby, "player %s: in session %v, in lobby %v", p.UserID, inSession, inLobby)
	}
}

func TestQueuedJoinIsBroadcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := player("alice", 2)
	h.join(t, alice)
	_, err := h.engine.StartSession(ctx)
	require.NoError(t, err)

	late := player("late", 6)
	h.join(t, late)

	msgs := h.broadcaster.ofType(events.TypePlayersInLobby)
	payload, err := events.ParsePayload(msgs[len(msgs)-1])
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerEntry{alice, late}, payload.(events.PlayersInLobbyPayload).Players)
}

func TestUniformDrawStaysInRange(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi int
	}{
		{name: "default range", lo: 1, hi: 10},
		{name: "single value", lo: 5, hi: 5},
		{name: "two values", lo: 0, hi: 1},
		{name: "negative lower bound", lo: -3, hi: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := map[int]bool{}
			for i := 0; i < 2000; i++ {
				n := uniformDraw(tt.lo, tt.hi)
				require.GreaterOrEqual(t, n, tt.lo)
				require.LessOrEqual(t, n, tt.hi)
				seen[n] = true
			}
			assert.Len(t, seen, tt.hi-tt.lo+1)
		})
	}
}

func TestResolveWithDefaultDrawerStaysInRange(t *testing.T) {
	ctx := context.Background()
	settings := config.DefaultGameSettings()
	sessions := &memorySessions{}
	eng := NewEngine(lobby.NewApp(newMemoryLobby(), settings.MinNumber, settings.MaxNumber), sessions,
		&fakeRecords{failOn: map[uuid.UUID]bool{}}, &fakeBroadcaster{}, settings,
		WithClock(clockwork.NewFakeClockAt(epoch)),
	)

	for round := 0; round < 50; round++ {
		picker := player("picker", round%10+1)
		_, err := eng.JoinLobby(ctx, picker.UserID, picker.Username, picker.PickedNumber)
		require.NoError(t, err)
		_, err = eng.StartSession(ctx)
		require.NoError(t, err)

		res, err := eng.ResolveAndScheduleNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.GreaterOrEqual(t, res.WinningNumber, settings.MinNumber)
		assert.LessOrEqual(t, res.WinningNumber, settings.MaxNumber)
		if res.WinningNumber == picker.PickedNumber {
			assert.Equal(t, []models.PlayerEntry{picker}, res.Winners)
		} else {
			assert.Empty(t, res.Winners)
		}
	}
	assert.Len(t, sessions.all(), 50)
}
