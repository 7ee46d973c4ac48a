package lobby

import (
	"context"

	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
)

// send delivers m unless the session is gone or ctx ends first.
func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.ctx.Done():
		return engine.ErrSessionNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, l *Lobby, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		// The lobby may have answered right before tearing down.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, engine.ErrSessionNotFound
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do runs cmd and waits for the outcome. Engine rule violations come back
// both in Result.Err and as the returned error.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	res, err := await(ctx, l, reply)
	if err != nil {
		return Result{}, err
	}
	return res, res.Err
}

// Retry re-runs recording of a finished game.
func (l *Lobby) Retry(ctx context.Context, actor string) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, RetryPersist{Actor: actor, Reply: reply}); err != nil {
		return Result{}, err
	}
	res, err := await(ctx, l, reply)
	if err != nil {
		return Result{}, err
	}
	return res, res.Err
}

func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, l, reply)
}

func (l *Lobby) Attach(ctx context.Context, clientID string, outbox chan Snapshot) error {
	return l.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

// AttachMirror attaches an in-process consumer that must see the newest
// snapshot even when it falls behind. See Join.Mirror.
func (l *Lobby) AttachMirror(ctx context.Context, clientID string, outbox chan Snapshot) error {
	return l.send(ctx, Join{ClientID: clientID, Outbox: outbox, Mirror: true})
}

// Detach never blocks on a torn down session.
func (l *Lobby) Detach(clientID string) {
	_ = l.send(context.Background(), Leave{ClientID: clientID})
}

// Close tears the session down without an engine command, e.g. when it has
// been idle for too long.
func (l *Lobby) Close() {
	_ = l.send(context.Background(), Shutdown{})
}
