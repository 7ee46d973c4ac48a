package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
	"github.com/DoyleJ11/insane-brain-backend/internal/store/mocks"
	"github.com/DoyleJ11/insane-brain-backend/internal/story"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

var t0 = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got version %d", within, s.Version)
	case <-time.After(within):
		// good: no snapshot
	}
}

// waitFor drains snapshots until one satisfies ok.
func waitFor(t *testing.T, ch <-chan Snapshot, within time.Duration, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case snap, open := <-ch:
			if !open {
				t.Fatalf("client outbox closed while waiting")
			}
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching snapshot")
			return Snapshot{}
		}
	}
}

func recvClosed(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox was not closed")
		}
	}
}

type testLobby struct {
	*Lobby
	clock *clock.Fixed
}

func newTestLobby(t *testing.T, rules engine.Rules, rec Recorder) testLobby {
	t.Helper()
	cat := story.Default()
	init := engine.NewState("game-1", "ABC123", "dragons", t0, rules, [engine.NumTeams]story.Template{cat[0], cat[1]})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clk := clock.NewFixed(t0)
	l := NewLobby(ctx, Config{
		State:    init,
		Logger:   zap.NewNop(),
		Clock:    clk,
		IDs:      &uuid.Sequence{Prefix: "p"},
		Recorder: rec,
	})
	return testLobby{Lobby: l, clock: clk}
}

func (tl testLobby) do(t *testing.T, cmd engine.Command) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := tl.Do(ctx, cmd)
	require.NoError(t, err, "%s by %s", cmd.Type, cmd.Actor)
	return res
}

func (tl testLobby) join(t *testing.T, name, userID string) string {
	t.Helper()
	return tl.do(t, engine.Command{Type: engine.CmdJoin, Name: name, UserID: userID}).PlayerID
}

func (tl testLobby) answerAll(t *testing.T, view types.SessionView, ids ...string) {
	t.Helper()
	for _, id := range ids {
		var team int
		for _, p := range view.Players {
			if p.ID == id {
				team = p.Team
			}
		}
		for _, seg := range view.Teams[team].Segments {
			tl.do(t, engine.Command{Type: engine.CmdSubmitAnswer, Actor: id, SegmentID: seg.ID, Text: "x"})
		}
	}
}

func TestLobby_Join_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)

	// create a client "connection": an outbox channel the lobby will write snapshots to
	clientOut := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	// on attach, lobby should immediately send the current snapshot
	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after attach: want version=0, got %d", first.Version)
	}
	if len(first.View.Players) != 0 || first.View.Phase != "lobby" {
		t.Fatalf("after attach: unexpected view %+v", first.View)
	}

	id := l.join(t, "Alice", "")
	if id != "p-1" {
		t.Fatalf("player id = %q, want p-1", id)
	}

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after join: want version=1, got %d", next.Version)
	}
	if len(next.View.Players) != 1 || next.View.HostID != "p-1" {
		t.Fatalf("after join: unexpected players %+v", next.View.Players)
	}

	l.Inbox() <- Shutdown{}
}

func TestLobby_ErrorGoesOnlyToCaller(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)
	alice := l.join(t, "Alice", "")
	bob := l.join(t, "Bob", "")

	out := make(chan Snapshot, 4)
	require.NoError(t, l.Attach(context.Background(), "watcher", out))
	before := recvSnapshot(t, out, 100*time.Millisecond)

	res, err := l.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, Actor: bob})
	assert.ErrorIs(t, err, engine.ErrIllegalPhaseTransition)
	assert.Equal(t, before.Version, res.Version)
	assert.Equal(t, "lobby", res.View.Phase)
	recvNoSnapshot(t, out, 100*time.Millisecond)

	l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})
	started := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, before.Version+1, started.Version)
	assert.Equal(t, "collecting", started.View.Phase)
	require.NotNil(t, started.View.RemainingMS)
	assert.Equal(t, int64(5*time.Minute/time.Millisecond), *started.View.RemainingMS)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	// outbox is full with the attach snapshot, so the next broadcast drops it
	l.join(t, "Alice", "")

	view, err := l.State(context.Background())
	require.NoError(t, err)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_ReconnectGetsCurrentSnapshot(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)
	alice := l.join(t, "Alice", "")
	l.join(t, "Bob", "")
	l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})

	out := make(chan Snapshot, 1)
	require.NoError(t, l.Attach(context.Background(), "again", out))
	snap := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 3, snap.Version)
	assert.Equal(t, "collecting", snap.View.Phase)
	assert.Len(t, snap.View.Players, 2)
}

func TestLobby_DeadlineFires_RevealsWithFallback(t *testing.T) {
	rules := engine.DefaultRules()
	rules.AnswerTime = 50 * time.Millisecond
	l := newTestLobby(t, rules, nil)

	alice := l.join(t, "Alice", "")
	bob := l.join(t, "Bob", "")
	res := l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})
	l.answerAll(t, res.View, bob)

	out := make(chan Snapshot, 8)
	require.NoError(t, l.Attach(context.Background(), "c1", out))

	snap := waitFor(t, out, time.Second, func(s Snapshot) bool { return s.View.Phase == "revealing" })
	require.NotNil(t, snap.View.Teams[0].Story)
	for _, b := range snap.View.Teams[0].Story.Blanks {
		assert.True(t, b.Fallback, "blank %s", b.SegmentID)
		assert.Equal(t, story.FallbackAnswer, b.Text)
	}
	for _, b := range snap.View.Teams[1].Story.Blanks {
		assert.False(t, b.Fallback, "blank %s", b.SegmentID)
	}
	assert.Nil(t, snap.View.Deadline)
}

func TestLobby_TimerGen_DropsStaleFires(t *testing.T) {
	rules := engine.DefaultRules()
	rules.AnswerTime = 150 * time.Millisecond
	l := newTestLobby(t, rules, nil)

	alice := l.join(t, "Alice", "")
	bob := l.join(t, "Bob", "")
	res := l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})

	out := make(chan Snapshot, 16)
	require.NoError(t, l.Attach(context.Background(), "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	// Everyone answers before the deadline; the collecting timer must not
	// produce another commit afterwards.
	l.answerAll(t, res.View, alice, bob)
	revealed := waitFor(t, out, time.Second, func(s Snapshot) bool { return s.View.Phase == "revealing" })

	recvNoSnapshot(t, out, 300*time.Millisecond)

	view, err := l.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, revealed.Version, view.Version)
	assert.Equal(t, engine.PhaseRevealing, view.State.Phase())
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	rules := engine.DefaultRules()
	rules.AnswerTime = 100 * time.Millisecond
	l := newTestLobby(t, rules, nil)

	alice := l.join(t, "Alice", "")
	l.join(t, "Bob", "")

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	// Arm timer and immediately shut down
	l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	l.Inbox() <- Shutdown{}

	// Now assert no *new* snapshot shows up (or channel is closed)
	recvNoSnapshot(t, out, 300*time.Millisecond)
	recvClosed(t, out, 100*time.Millisecond)
}

func TestLobby_LastPlayerLeavingTearsDown(t *testing.T) {
	closed := make(chan string, 1)
	cat := story.Default()
	init := engine.NewState("game-1", "ABC123", "dragons", t0, engine.DefaultRules(), [engine.NumTeams]story.Template{cat[0], cat[1]})
	l := NewLobby(context.Background(), Config{
		State:   init,
		Logger:  zap.NewNop(),
		Clock:   clock.NewFixed(t0),
		IDs:     &uuid.Sequence{Prefix: "p"},
		OnClose: func(l *Lobby) { closed <- l.Code() },
	})
	tl := testLobby{Lobby: l}

	alice := tl.join(t, "Alice", "")
	out := make(chan Snapshot, 4)
	require.NoError(t, l.Attach(context.Background(), "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	tl.do(t, engine.Command{Type: engine.CmdLeave, Actor: alice})

	last := recvSnapshot(t, out, 100*time.Millisecond)
	assert.True(t, last.View.Closed)
	recvClosed(t, out, 100*time.Millisecond)

	select {
	case code := <-closed:
		assert.Equal(t, "ABC123", code)
	case <-time.After(time.Second):
		t.Fatal("OnClose not called")
	}

	_, err := l.Do(context.Background(), engine.Command{Type: engine.CmdJoin, Name: "Bob"})
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)
}

func playToCompletion(t *testing.T, l testLobby) (alice, bob string) {
	t.Helper()
	alice = l.join(t, "Alice", "user-alice")
	bob = l.join(t, "Bob", "")
	res := l.do(t, engine.Command{Type: engine.CmdStartGame, Actor: alice})
	l.answerAll(t, res.View, alice, bob)
	l.do(t, engine.Command{Type: engine.CmdProceedToVote, Actor: alice})
	l.do(t, engine.Command{Type: engine.CmdCastVote, Actor: alice, Team: engine.TeamB})
	done := l.do(t, engine.Command{Type: engine.CmdCastVote, Actor: bob, Team: engine.TeamA})
	require.Equal(t, "complete", done.View.Phase)
	return alice, bob
}

func TestLobby_RecordsResultsAndHostCanRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	var recorded *store.RecordResultsInput
	gomock.InOrder(
		repo.EXPECT().RecordResults(gomock.Any(), gomock.Any()).
			Return(store.ErrPersistenceUnavailable),
		repo.EXPECT().RecordResults(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *store.RecordResultsInput) error {
				recorded = in
				return nil
			}),
	)

	l := newTestLobby(t, engine.DefaultRules(), repo)
	out := make(chan Snapshot, 64)
	require.NoError(t, l.Attach(context.Background(), "c1", out))

	alice, bob := playToCompletion(t, l)

	failed := waitFor(t, out, time.Second, func(s Snapshot) bool {
		return s.View.Persistence != nil && s.View.Persistence.Status == types.PersistFailed
	})
	assert.Contains(t, failed.View.Persistence.Error, "persistence unavailable")
	require.NotNil(t, failed.View.Result)
	assert.True(t, failed.View.Result.Tie)

	// in-memory results survive the failed write
	for _, p := range failed.View.Players {
		assert.Equal(t, 10, p.Points, p.Name)
	}

	_, err := l.Retry(context.Background(), bob)
	assert.ErrorIs(t, err, engine.ErrIllegalPhaseTransition)

	_, err = l.Retry(context.Background(), alice)
	require.NoError(t, err)

	waitFor(t, out, time.Second, func(s Snapshot) bool {
		return s.View.Persistence != nil && s.View.Persistence.Status == types.PersistSaved
	})

	require.NotNil(t, recorded)
	assert.Equal(t, "game-1", recorded.Game.ID)
	assert.True(t, recorded.Game.Tie)
	assert.Nil(t, recorded.Game.WinningTeam)
	require.Len(t, recorded.Players, 1, "guests get no player row")
	assert.Equal(t, "user-alice", recorded.Players[0].UserID)
	assert.Equal(t, 10, recorded.Players[0].Points)
	assert.True(t, recorded.Players[0].Winner)
	assert.True(t, recorded.Players[0].IsHost)

	_, err = l.Retry(context.Background(), alice)
	assert.ErrorIs(t, err, engine.ErrIllegalPhaseTransition, "nothing to retry once saved")
}

func TestLobby_DoAfterContextCancel(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdJoin, Name: "Alice"})
	// either the send or the wait notices the cancelled context
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want nil or context.Canceled", err)
	}
}

func TestLobby_MirrorKeepsNewestSnapshot(t *testing.T) {
	l := newTestLobby(t, engine.DefaultRules(), nil)
	ctx := context.Background()

	mirror := make(chan Snapshot, 2)
	require.NoError(t, l.AttachMirror(ctx, "relay", mirror))
	slow := make(chan Snapshot, 1)
	require.NoError(t, l.Attach(ctx, "c1", slow))

	view, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.NumClients, "mirrors are not connections")

	for _, name := range []string{"Alice", "Bob", "Carol", "Dave", "Erin"} {
		l.join(t, name, "")
	}

	// the slow client is dropped, the mirror is not
	recvClosed(t, slow, 100*time.Millisecond)
	view, err = l.State(ctx)
	require.NoError(t, err)
	assert.Zero(t, view.NumClients)

	older := recvSnapshot(t, mirror, 100*time.Millisecond)
	newest := recvSnapshot(t, mirror, 100*time.Millisecond)
	assert.Less(t, older.Version, newest.Version)
	assert.Equal(t, view.Version, newest.Version)

	l.join(t, "Frank", "")
	next := recvSnapshot(t, mirror, 100*time.Millisecond)
	assert.Equal(t, view.Version+1, next.Version)
}

func TestLobby_ClosedSessionWaitsForResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	release := make(chan struct{})
	gomock.InOrder(
		repo.EXPECT().RecordResults(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, *store.RecordResultsInput) error {
				<-release
				return store.ErrPersistenceUnavailable
			}),
		repo.EXPECT().RecordResults(gomock.Any(), gomock.Any()).Return(nil),
	)

	closed := make(chan struct{})
	cat := story.Default()
	init := engine.NewState("game-1", "ABC123", "dragons", t0, engine.DefaultRules(), [engine.NumTeams]story.Template{cat[0], cat[1]})
	l := NewLobby(context.Background(), Config{
		State:          init,
		Logger:         zap.NewNop(),
		Clock:          clock.NewFixed(t0),
		IDs:            &uuid.Sequence{Prefix: "p"},
		Recorder:       repo,
		PersistBackoff: time.Millisecond,
		OnClose:        func(*Lobby) { close(closed) },
	})
	tl := testLobby{Lobby: l}
	out := make(chan Snapshot, 64)
	require.NoError(t, l.Attach(context.Background(), "c1", out))

	alice, _ := playToCompletion(t, tl)
	tl.do(t, engine.Command{Type: engine.CmdEndSession, Actor: alice})

	select {
	case <-l.Done():
		t.Fatal("session torn down while results were still being written")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	saved := waitFor(t, out, time.Second, func(s Snapshot) bool {
		return s.View.Persistence != nil && s.View.Persistence.Status == types.PersistSaved
	})
	assert.True(t, saved.View.Closed)
	recvClosed(t, out, time.Second)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("OnClose not called after results were saved")
	}
}

func TestLobby_ClosedSessionGivesUpAfterRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().RecordResults(gomock.Any(), gomock.Any()).
		Return(store.ErrPersistenceUnavailable).Times(maxPersistAttempts)

	cat := story.Default()
	init := engine.NewState("game-1", "ABC123", "dragons", t0, engine.DefaultRules(), [engine.NumTeams]story.Template{cat[0], cat[1]})
	l := NewLobby(context.Background(), Config{
		State:          init,
		Logger:         zap.NewNop(),
		Clock:          clock.NewFixed(t0),
		IDs:            &uuid.Sequence{Prefix: "p"},
		Recorder:       repo,
		PersistBackoff: time.Millisecond,
	})
	tl := testLobby{Lobby: l}

	alice, _ := playToCompletion(t, tl)
	tl.do(t, engine.Command{Type: engine.CmdEndSession, Actor: alice})

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session never torn down")
	}
}
