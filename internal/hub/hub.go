package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/lobby"
	"github.com/DoyleJ11/insane-brain-backend/internal/story"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

const (
	codeLength   = 6
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 32
	relayClient  = "relay"
)

var ErrNoFreeCode = errors.New("could not find a free session code")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Prompt string
	Reply  chan Created
}

type Created struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby forgets a torn down lobby. Lobby guards against removing a
// newer lobby that reuses the code.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

type reap struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}
func (reap) isHubMsg()         {}

// Publisher mirrors committed snapshots somewhere outside this process.
type Publisher interface {
	Publish(ctx context.Context, code string, version int, view types.SessionView) error
}

type Config struct {
	Logger      *zap.Logger
	Rules       engine.Rules
	Catalog     story.Catalog
	Clock       clock.Clock
	IDs         uuid.UUID
	Recorder    lobby.Recorder
	Publisher   Publisher     // nil disables mirroring
	IdleTimeout time.Duration // 0 disables reaping
	Rand        *mrand.Rand   // template choice
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.DefaultClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = uuid.New()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = story.Default()
	}
	if cfg.Rules == (engine.Rules{}) {
		cfg.Rules = engine.DefaultRules()
	}
	if cfg.Rand == nil {
		cfg.Rand = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	if cfg.IdleTimeout > 0 {
		go h.reaperLoop()
	}
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg.Prompt)
				msg.Reply <- Created{Lobby: lb, Err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil && (msg.Lobby == nil || lb == msg.Lobby) {
					delete(h.lobbies, msg.Code)
					h.log.Info("session removed", zap.String("code", msg.Code), zap.Int("live", len(h.lobbies)))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case reap:
				h.reapIdle()

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(prompt string) (*lobby.Lobby, error) {
	prompt, err := engine.ValidatePrompt(prompt)
	if err != nil {
		return nil, err
	}
	code, err := h.freeCode()
	if err != nil {
		return nil, err
	}
	templates, err := h.cfg.Catalog.Pair(h.cfg.Rand)
	if err != nil {
		return nil, err
	}

	state := engine.NewState(h.cfg.IDs.NewUUID(), code, prompt, h.cfg.Clock.Now(), h.cfg.Rules, templates)
	lb := lobby.NewLobby(h.ctx, lobby.Config{
		State:    state,
		Logger:   h.log,
		Clock:    h.cfg.Clock,
		IDs:      h.cfg.IDs,
		Recorder: h.cfg.Recorder,
		OnClose:  h.forget,
	})
	h.lobbies[code] = lb

	if h.cfg.Publisher != nil {
		out := make(chan lobby.Snapshot, 64)
		if err := lb.AttachMirror(h.ctx, relayClient, out); err != nil {
			h.log.Warn("relay attach failed", zap.String("code", code), zap.Error(err))
		} else {
			go h.mirror(code, out)
		}
	}

	h.log.Info("session created",
		zap.String("code", code),
		zap.String("game_id", state.GameID),
		zap.String("team_a_template", templates[0].ID),
		zap.String("team_b_template", templates[1].ID))
	return lb, nil
}

// freeCode draws codes until one is not in use. Only the hub goroutine
// touches the map, so the check and the insert that follows cannot race.
func (h *Hub) freeCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.lobbies[code]; !taken {
			return code, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", code))
	}
	return "", ErrNoFreeCode
}

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// forget runs on the lobby goroutine, so it must not block on the hub.
func (h *Hub) forget(lb *lobby.Lobby) {
	go func() {
		select {
		case h.inbox <- RemoveLobby{Code: lb.Code(), Lobby: lb}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) mirror(code string, snaps <-chan lobby.Snapshot) {
	for snap := range snaps {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := h.cfg.Publisher.Publish(ctx, code, snap.Version, snap.View); err != nil {
			h.log.Warn("relay publish failed", zap.String("code", code), zap.Int("version", snap.Version), zap.Error(err))
		}
		cancel()
	}
	h.log.Debug("relay detached", zap.String("code", code))
}

func (h *Hub) reaperLoop() {
	ticker := time.NewTicker(h.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			select {
			case h.inbox <- reap{}:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) reapIdle() {
	cutoff := h.cfg.Clock.Now().Add(-h.cfg.IdleTimeout)
	for code, lb := range h.lobbies {
		if lb.LastActive().Before(cutoff) {
			h.log.Info("reaping idle session", zap.String("code", code))
			delete(h.lobbies, code)
			go lb.Close()
		}
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		go lb.Close()
	}
	clear(h.lobbies)
}

// Create starts a new session for prompt.
func (h *Hub) Create(ctx context.Context, prompt string) (*lobby.Lobby, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateLobby{Prompt: prompt, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Lobby, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the live session for code.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, engine.ErrSessionNotFound
		}
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Shutdown tears down every live session and stops the hub.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}
