package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/auth"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/hub"
	"github.com/DoyleJ11/insane-brain-backend/internal/lobby"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
	actTimeout   = 5 * time.Second
	pingInterval = 30 * time.Second
)

type Deps struct {
	Hub            *hub.Hub
	Tokens         *auth.Issuer
	IDs            uuid.UUID
	Clock          clock.Clock
	Logger         *zap.Logger
	OriginPatterns []string
}

// Handler serves GET /ws?code=&token=. Without a token the connection is a
// read-only spectator.
func Handler(d Deps) http.HandlerFunc {
	if d.IDs == nil {
		d.IDs = uuid.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.DefaultClock{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := d.Hub.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		you := types.You{Spectator: true}
		if tok := r.URL.Query().Get("token"); tok != "" {
			claims, err := d.Tokens.Parse(tok, code)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			you = types.You{PlayerID: claims.PlayerID}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: d.OriginPatterns,
		})
		if err != nil {
			d.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		c := &client{
			id:    d.IDs.NewUUID(),
			conn:  conn,
			lb:    lb,
			you:   you,
			clock: d.Clock,
			log:   d.Logger.With(zap.String("code", code), zap.String("player", you.PlayerID)),
		}
		c.serve(r.Context())
	}
}

type client struct {
	id    string
	conn  *websocket.Conn
	lb    *lobby.Lobby
	you   types.You
	clock clock.Clock
	log   *zap.Logger
}

func (c *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan lobby.Snapshot, outboxSize)
	if err := c.lb.Attach(ctx, c.id, out); err != nil {
		c.conn.Close(websocket.StatusGoingAway, "session ended")
		return
	}
	defer c.lb.Detach(c.id)
	c.log.Debug("client attached", zap.String("client", c.id))

	go c.writeLoop(ctx, out)

	// Reader loop
	for {
		var cm types.ClientMessage
		if err := wsjson.Read(ctx, c.conn, &cm); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		c.handle(ctx, cm)
	}
}

func (c *client) handle(ctx context.Context, cm types.ClientMessage) {
	if c.you.Spectator {
		c.writeError(ctx, auth.ErrUnauthorized)
		return
	}

	actx, cancel := context.WithTimeout(ctx, actTimeout)
	defer cancel()

	var err error
	if cm.Type == types.ActRetryPersist {
		_, err = c.lb.Retry(actx, c.you.PlayerID)
	} else {
		var cmd engine.Command
		cmd, err = ToCommand(cm, c.you.PlayerID)
		if err == nil {
			_, err = c.lb.Do(actx, cmd)
		}
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	if cm.Type == types.ActLeave {
		c.conn.Close(websocket.StatusNormalClosure, "left session")
	}
}

// writeLoop forwards snapshots until the lobby closes the outbox, either
// because the session ended or because this client fell behind.
func (c *client) writeLoop(ctx context.Context, out <-chan lobby.Snapshot) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	closed := false
	for {
		select {
		case snap, ok := <-out:
			if !ok {
				if closed {
					c.conn.Close(websocket.StatusNormalClosure, "session ended")
				} else {
					c.conn.Close(websocket.StatusTryAgainLater, "too slow, reconnect")
				}
				return
			}
			closed = snap.View.Closed
			view := snap.View.WithRemaining(c.clock.Now())
			you := c.you
			c.write(ctx, types.ServerMessage{
				Type:    types.MsgStateSnapshot,
				Version: snap.Version,
				State:   &view,
				You:     &you,
			})

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.conn, msg); err != nil {
		c.log.Debug("write failed", zap.Error(err))
	}
}

func (c *client) writeError(ctx context.Context, err error) {
	body := ErrorBody(err)
	c.write(ctx, types.ServerMessage{Type: types.MsgError, Error: &body})
}
