package lobby

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
	"github.com/DoyleJ11/insane-brain-backend/internal/timer"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

type Msg interface{ isLobbyMsg() }

// FromClient runs one engine command. Reply, when set, must have room for
// one Result; it is the only place errors are reported.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// Join attaches a connection. The current snapshot is sent to Outbox right
// away and every committed snapshot after that. The lobby closes Outbox
// when the connection is dropped or the session ends.
type Join struct {
	ClientID string
	Outbox   chan Snapshot

	// Mirror marks an in-process consumer such as the snapshot relay. A full
	// mirror outbox loses its oldest queued snapshot instead of being
	// dropped, so the newest one always gets through. Mirrors are not
	// counted as connections.
	Mirror bool
}

func (Join) isLobbyMsg() {}

// Leave detaches a connection. The player stays in the session.
type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// RetryPersist asks the lobby to record a finished game again after a
// failed attempt. Host only.
type RetryPersist struct {
	Actor string
	Reply chan Result
}

func (RetryPersist) isLobbyMsg() {}

type timerFired struct {
	gen   uint64
	phase engine.Phase
}

func (timerFired) isLobbyMsg() {}

type persistDone struct {
	attempt int
	err     error
}

func (persistDone) isLobbyMsg() {}

type persistRetry struct{}

func (persistRetry) isLobbyMsg() {}

type Snapshot struct {
	Version int
	View    types.SessionView
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Session    types.SessionView
}

// Result answers a FromClient or RetryPersist. PlayerID is the acting
// player, which for a join is the id the lobby assigned.
type Result struct {
	Version  int
	View     types.SessionView
	PlayerID string
	Err      error
}

// Recorder saves finished games. store.Repository satisfies it.
type Recorder interface {
	RecordResults(ctx context.Context, input *store.RecordResultsInput) error
}

type Config struct {
	State          engine.State
	Logger         *zap.Logger
	Clock          clock.Clock
	IDs            uuid.UUID
	Recorder       Recorder // nil disables recording
	PersistTimeout time.Duration
	PersistBackoff time.Duration // wait between automatic retries once the session has closed
	OnClose        func(l *Lobby) // called from the lobby goroutine after teardown
}

type Lobby struct {
	code     string
	inbox    chan Msg
	state    engine.State
	version  int
	clients  map[string]*outbox
	deadline timer.Deadline

	persist        *types.PersistenceView
	persistAttempt int
	persisting     bool // a write is in flight
	retryScheduled bool

	clock          clock.Clock
	ids            uuid.UUID
	recorder       Recorder
	persistTimeout time.Duration
	persistBackoff time.Duration
	onClose        func(*Lobby)
	log            *zap.Logger

	lastActive atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:           cfg.State.Code,
		inbox:          make(chan Msg, 64),
		state:          cfg.State,
		clients:        make(map[string]*outbox),
		clock:          cfg.Clock,
		ids:            cfg.IDs,
		recorder:       cfg.Recorder,
		persistTimeout: cfg.PersistTimeout,
		persistBackoff: cfg.PersistBackoff,
		onClose:        cfg.OnClose,
		log:            cfg.Logger,
		ctx:            ctx,
		cancel:         cancel,
	}
	if l.clock == nil {
		l.clock = clock.DefaultClock{}
	}
	if l.ids == nil {
		l.ids = uuid.New()
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.persistTimeout <= 0 {
		l.persistTimeout = 10 * time.Second
	}
	if l.persistBackoff <= 0 {
		l.persistBackoff = 2 * time.Second
	}
	l.log = l.log.With(zap.String("code", l.code))
	l.touch()

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				if !msg.Mirror {
					l.touch()
				}
				o := &outbox{ch: msg.Outbox, mirror: msg.Mirror}
				l.clients[msg.ClientID] = o
				l.deliver(msg.ClientID, o, l.snapshot())

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				l.touch()
				l.handleCommand(msg.Cmd, msg.Reply)

			case timerFired:
				l.handleTimer(msg)

			case RetryPersist:
				l.touch()
				l.handleRetry(msg)

			case persistDone:
				l.handlePersistDone(msg)

			case persistRetry:
				l.retryScheduled = false
				l.startPersist()

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: l.numConnections(),
					State:      l.state,
					Session:    l.view(),
				}

			case Shutdown:
				l.shutdown()
				return
			}

			if l.state.Closed && l.readyToClose() {
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleCommand(cmd engine.Command, reply chan Result) {
	cmd.At = l.clock.Now()
	if cmd.Type == engine.CmdJoin && cmd.Actor == "" {
		cmd.Actor = l.ids.NewUUID()
	}

	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("actor", cmd.Actor),
			zap.Error(err))
		l.respond(reply, Result{Version: l.version, View: l.view(), PlayerID: cmd.Actor, Err: err})
		return
	}

	l.commit(events, next)
	l.log.Debug("command applied",
		zap.String("cmd", string(cmd.Type)),
		zap.String("actor", cmd.Actor),
		zap.Int("version", l.version))
	l.respond(reply, Result{Version: l.version, View: l.view(), PlayerID: cmd.Actor})
}

func (l *Lobby) handleTimer(msg timerFired) {
	if !l.deadline.IsCurrent(msg.gen) {
		return // re-armed or stopped since
	}
	// The timer is the authority on expiry; never stamp earlier than the
	// deadline it was armed for.
	at := l.clock.Now()
	if dl, ok := l.state.Deadline(); ok && at.Before(dl) {
		at = dl
	}
	events, next, err := engine.Apply(l.state, engine.Command{
		Type:  engine.CmdDeadlineExpired,
		Phase: msg.phase,
		At:    at,
	})
	if err != nil {
		l.log.Warn("deadline expiry failed", zap.String("phase", string(msg.phase)), zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}
	l.log.Info("deadline expired", zap.String("phase", string(msg.phase)))
	l.commit(events, next)
}

// commit installs next, rearms the deadline, starts recording a finished
// game and broadcasts the new snapshot.
func (l *Lobby) commit(events []engine.Event, next engine.State) {
	l.state = next
	l.version++

	if engine.ContainsEvent(events, engine.EvtPhaseChanged) {
		l.log.Info("phase changed", zap.String("phase", string(next.Phase())), zap.Int("version", l.version))
		l.armDeadline()
	}
	if engine.ContainsEvent(events, engine.EvtGameCompleted) {
		l.startPersist()
	}
	l.broadcast(l.snapshot())
}

func (l *Lobby) armDeadline() {
	dl, ok := l.state.Deadline()
	if !ok || l.state.Closed {
		l.deadline.Stop()
		return
	}
	phase := l.state.Phase()
	l.deadline.Arm(dl.Sub(l.clock.Now()), func(gen uint64) {
		select {
		case l.inbox <- timerFired{gen: gen, phase: phase}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) respond(reply chan Result, res Result) {
	if reply == nil {
		return
	}
	select {
	case reply <- res:
	default:
		l.log.Warn("reply channel full, dropping result")
	}
}

func (l *Lobby) shutdown() {
	l.deadline.Stop()
	for id, o := range l.clients {
		close(o.ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
	l.log.Info("session torn down", zap.Int("version", l.version))
	if l.onClose != nil {
		l.onClose(l)
	}
}

type outbox struct {
	ch     chan Snapshot
	mirror bool
	behind bool // mirror has skipped snapshots since its last clean send
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, o := range l.clients {
		l.deliver(id, o, snap)
	}
}

func (l *Lobby) deliver(id string, o *outbox, snap Snapshot) {
	select {
	case o.ch <- snap:
		o.behind = false
		return
	default:
	}

	if !o.mirror {
		// Client is slow/full - drop them. It gets the full snapshot
		// again when it reconnects.
		l.log.Debug("dropping slow client", zap.String("client", id))
		close(o.ch)
		delete(l.clients, id)
		return
	}

	if !o.behind {
		l.log.Warn("mirror is behind, skipping stale snapshots",
			zap.String("client", id), zap.Int("version", snap.Version))
		o.behind = true
	}
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- snap:
	default:
		// Only the lobby sends, so the slot freed above is still free
		// unless the outbox has no capacity at all.
		l.log.Error("mirror outbox has no room", zap.String("client", id))
	}
}

func (l *Lobby) numConnections() int {
	n := 0
	for _, o := range l.clients {
		if !o.mirror {
			n++
		}
	}
	return n
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, View: l.view()}
}

func (l *Lobby) view() types.SessionView {
	return BuildView(l.state, l.persist).WithRemaining(l.clock.Now())
}

func (l *Lobby) touch() {
	l.lastActive.Store(l.clock.Now().UnixNano())
}

// Inbox exposes the inbox so tests or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the session is torn down.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// LastActive is the time of the last command or attach.
func (l *Lobby) LastActive() time.Time {
	return time.Unix(0, l.lastActive.Load())
}
