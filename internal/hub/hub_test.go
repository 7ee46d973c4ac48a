package hub

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

var t0 = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu       sync.Mutex
	versions map[string][]int
	phases   map[string][]string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{versions: map[string][]int{}, phases: map[string][]string{}}
}

func (f *fakePublisher) Publish(_ context.Context, code string, version int, view types.SessionView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[code] = append(f.versions[code], version)
	f.phases[code] = append(f.phases[code], view.Phase)
	return nil
}

func (f *fakePublisher) published(code string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.versions[code]...)
}

func newTestHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if cfg.Clock == nil {
		cfg.Clock = clock.NewFixed(t0)
	}
	if cfg.IDs == nil {
		cfg.IDs = &uuid.Sequence{Prefix: "id"}
	}
	return NewHub(ctx, cfg)
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t, Config{})
	ctx := context.Background()

	lb1, err := h.Create(ctx, "  dragons ")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), lb1.Code())

	lb2, err := h.Get(ctx, lb1.Code())
	require.NoError(t, err)
	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}

	view, err := lb1.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dragons", view.State.Prompt)
	assert.NotEqual(t, view.State.Teams[0].Template.ID, view.State.Teams[1].Template.ID)
}

func TestHub_CreateRejectsBadPrompt(t *testing.T) {
	h := newTestHub(t, Config{})
	for _, prompt := range []string{"", "   ", "this prompt is way too long to fit"} {
		_, err := h.Create(context.Background(), prompt)
		assert.ErrorIs(t, err, engine.ErrInvalidPrompt, "prompt %q", prompt)
	}
}

func TestHub_GetUnknown(t *testing.T) {
	h := newTestHub(t, Config{})
	_, err := h.Get(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)
}

func TestHub_RemovesSessionWhenLastPlayerLeaves(t *testing.T) {
	h := newTestHub(t, Config{})
	ctx := context.Background()

	lb, err := h.Create(ctx, "dragons")
	require.NoError(t, err)
	res, err := lb.Do(ctx, engine.Command{Type: engine.CmdJoin, Name: "Alice"})
	require.NoError(t, err)
	_, err = lb.Do(ctx, engine.Command{Type: engine.CmdLeave, Actor: res.PlayerID})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := h.Get(ctx, lb.Code())
		return err == engine.ErrSessionNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ReapsIdleSessions(t *testing.T) {
	clk := clock.NewFixed(t0)
	h := newTestHub(t, Config{Clock: clk, IdleTimeout: 40 * time.Millisecond})
	ctx := context.Background()

	lb, err := h.Create(ctx, "dragons")
	require.NoError(t, err)

	clk.Advance(time.Minute)

	require.Eventually(t, func() bool {
		n, err := h.Count(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("reaped lobby still running")
	}
}

func TestHub_MirrorsSnapshotsToPublisher(t *testing.T) {
	pub := newFakePublisher()
	h := newTestHub(t, Config{Publisher: pub})
	ctx := context.Background()

	lb, err := h.Create(ctx, "dragons")
	require.NoError(t, err)
	_, err = lb.Do(ctx, engine.Command{Type: engine.CmdJoin, Name: "Alice"})
	require.NoError(t, err)
	_, err = lb.Do(ctx, engine.Command{Type: engine.CmdJoin, Name: "Bob"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(pub.published(lb.Code())) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, pub.published(lb.Code()))
}

// stallingPublisher blocks every Publish until gate is closed.
type stallingPublisher struct {
	*fakePublisher
	gate chan struct{}
}

func (p *stallingPublisher) Publish(ctx context.Context, code string, version int, view types.SessionView) error {
	select {
	case <-p.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.fakePublisher.Publish(ctx, code, version, view)
}

func TestHub_MirrorCatchesUpAfterPublisherStall(t *testing.T) {
	pub := &stallingPublisher{fakePublisher: newFakePublisher(), gate: make(chan struct{})}
	h := newTestHub(t, Config{Publisher: pub})
	ctx := context.Background()

	lb, err := h.Create(ctx, "dragons")
	require.NoError(t, err)

	var ids []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		res, err := lb.Do(ctx, engine.Command{Type: engine.CmdJoin, Name: name})
		require.NoError(t, err)
		ids = append(ids, res.PlayerID)
	}
	res, err := lb.Do(ctx, engine.Command{Type: engine.CmdStartGame, Actor: ids[0]})
	require.NoError(t, err)
	seg := res.View.Teams[engine.TeamA].Segments[0].ID

	// far more commits than the relay outbox holds
	for i := 0; i < 80; i++ {
		_, err := lb.Do(ctx, engine.Command{
			Type: engine.CmdSubmitAnswer, Actor: ids[0], SegmentID: seg, Text: fmt.Sprintf("take %d", i),
		})
		require.NoError(t, err)
	}
	close(pub.gate)

	last, err := lb.Do(ctx, engine.Command{Type: engine.CmdLeave, Actor: ids[1]})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got := pub.published(lb.Code())
		return len(got) > 0 && got[len(got)-1] == last.Version
	}, 2*time.Second, 10*time.Millisecond)

	got := pub.published(lb.Code())
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "published out of order")
	}

	view, err := lb.State(ctx)
	require.NoError(t, err)
	assert.Zero(t, view.NumClients, "the relay is not a connection")
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	h := newTestHub(t, Config{})
	lb, err := h.Create(context.Background(), "dragons")
	require.NoError(t, err)

	h.Shutdown()

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby still running after hub shutdown")
	}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
