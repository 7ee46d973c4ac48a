package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

// ResultsInput turns a completed session into the rows the store records.
// Guests without a linked account get no player row.
func ResultsInput(s engine.State, completedAt time.Time) (*store.RecordResultsInput, bool) {
	st, ok := s.Stage.(*engine.CompleteStage)
	if !ok {
		return nil, false
	}

	game := &store.Game{
		ID:          s.GameID,
		Code:        s.Code,
		Prompt:      s.Prompt,
		CreatedAt:   s.CreatedAt,
		CompletedAt: completedAt,
		Tie:         st.Result.Tie,
		StoryA:      st.Stories[engine.TeamA].Text,
		StoryB:      st.Stories[engine.TeamB].Text,
	}
	if !st.Result.Tie {
		w := int(st.Result.Winner)
		game.WinningTeam = &w
	}

	in := &store.RecordResultsInput{Game: game}
	for _, id := range s.Order {
		p := s.Players[id]
		if p.UserID == "" {
			continue
		}
		_, won := st.Awards[id]
		in.Players = append(in.Players, &store.Player{
			UserID: p.UserID,
			GameID: s.GameID,
			IsHost: p.IsHost,
			Winner: won,
			Team:   int(p.Team),
			Points: st.Awards[id],
		})
	}
	return in, true
}

// maxPersistAttempts bounds the automatic retries made after the session
// has closed and no host is left to retry by hand.
const maxPersistAttempts = 3

func (l *Lobby) startPersist() {
	if l.recorder == nil {
		return
	}
	in, ok := ResultsInput(l.state, l.clock.Now())
	if !ok {
		return
	}
	l.persistAttempt++
	attempt := l.persistAttempt
	l.persist = &types.PersistenceView{Status: types.PersistPending}
	l.persisting = true

	rec, timeout := l.recorder, l.persistTimeout
	go func() {
		// Detached from the session so a teardown right after the game
		// ends does not abort the write.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := rec.RecordResults(ctx, in)
		select {
		case l.inbox <- persistDone{attempt: attempt, err: err}:
		case <-l.ctx.Done():
			if err != nil {
				l.log.Error("recording results failed after teardown", zap.Error(err))
			}
		}
	}()
}

func (l *Lobby) handlePersistDone(msg persistDone) {
	if msg.attempt != l.persistAttempt {
		return
	}
	l.persisting = false
	if msg.err != nil {
		l.log.Warn("recording results failed", zap.Int("attempt", msg.attempt), zap.Error(msg.err))
		l.persist = &types.PersistenceView{Status: types.PersistFailed, Error: msg.err.Error()}
	} else {
		l.log.Info("results recorded", zap.Int("attempt", msg.attempt))
		l.persist = &types.PersistenceView{Status: types.PersistSaved}
	}
	l.version++
	l.broadcast(l.snapshot())
}

func (l *Lobby) handleRetry(msg RetryPersist) {
	p, ok := l.state.Players[msg.Actor]
	switch {
	case !ok:
		l.respond(msg.Reply, Result{Version: l.version, View: l.view(), PlayerID: msg.Actor, Err: engine.ErrPlayerNotFound})
		return
	case !p.IsHost || l.state.Closed || l.persist == nil || l.persist.Status != types.PersistFailed:
		l.respond(msg.Reply, Result{Version: l.version, View: l.view(), PlayerID: msg.Actor, Err: engine.ErrIllegalPhaseTransition})
		return
	}

	l.startPersist()
	l.version++
	snap := l.snapshot()
	l.broadcast(snap)
	l.respond(msg.Reply, Result{Version: snap.Version, View: snap.View, PlayerID: msg.Actor})
}

// readyToClose reports whether a closed session can be torn down. It stays
// up while a results write is in flight, and retries a failed write a few
// times before giving up.
func (l *Lobby) readyToClose() bool {
	failed := l.persist != nil && l.persist.Status == types.PersistFailed
	switch {
	case l.persisting || l.retryScheduled:
		return false
	case failed && l.persistAttempt < maxPersistAttempts:
		l.scheduleRetry()
		return false
	case failed:
		l.log.Error("giving up recording results", zap.Int("attempts", l.persistAttempt))
	}
	return true
}

func (l *Lobby) scheduleRetry() {
	l.retryScheduled = true
	delay := l.persistBackoff * time.Duration(l.persistAttempt)
	l.log.Info("session closed with unsaved results, retrying",
		zap.Int("attempt", l.persistAttempt+1), zap.Duration("in", delay))
	time.AfterFunc(delay, func() {
		select {
		case l.inbox <- persistRetry{}:
		case <-l.ctx.Done():
		}
	})
}
