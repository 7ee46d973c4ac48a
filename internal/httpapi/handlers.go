package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/auth"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/clock"
	"github.com/DoyleJ11/insane-brain-backend/internal/common/uuid"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/hub"
	"github.com/DoyleJ11/insane-brain-backend/internal/lobby"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
	"github.com/DoyleJ11/insane-brain-backend/internal/ws"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

const (
	actionTimeout = 5 * time.Second
	maxBodyBytes  = 16 << 10
	qrSize        = 320 // mobile-friendly size
)

// Archive serves snapshots of sessions that are no longer live.
type Archive interface {
	Latest(ctx context.Context, code string) (*types.SnapshotResponse, error)
}

type Deps struct {
	Hub            *hub.Hub
	Tokens         *auth.Issuer
	Repo           store.Repository
	Archive        Archive // optional
	IDs            uuid.UUID
	Clock          clock.Clock
	Logger         *zap.Logger
	PublicURL      string // base for join links; request host when empty
	OriginPatterns []string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.IDs == nil {
		d.IDs = uuid.New()
	}
	if d.Clock == nil {
		d.Clock = clock.DefaultClock{}
	}
	if d.Repo == nil {
		d.Repo = store.Unavailable{}
	}
	return d
}

func Healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.Hub.Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "stopping"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
	}
}

func CreateSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if !decode(w, r, &req) {
			return
		}
		prof, err := d.profile(r.Context(), req.Name, req.Avatar, req.UserID)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		lb, err := d.Hub.Create(r.Context(), req.Prompt)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		res, err := d.join(r.Context(), lb, prof)
		if err != nil {
			lb.Close()
			writeError(w, d.Logger, err)
			return
		}
		d.respondJoined(w, r, lb.Code(), res.PlayerID)
	}
}

func JoinSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.JoinRequest
		if !decode(w, r, &req) {
			return
		}
		lb, err := d.Hub.Get(r.Context(), sessionCode(r))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		prof, err := d.profile(r.Context(), req.Name, req.Avatar, req.UserID)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		res, err := d.join(r.Context(), lb, prof)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.respondJoined(w, r, lb.Code(), res.PlayerID)
	}
}

// GetSession returns the live snapshot, or the archived one once the
// session has been torn down.
func GetSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := sessionCode(r)
		lb, err := d.Hub.Get(r.Context(), code)
		if err == nil {
			view, err := lb.State(r.Context())
			if err == nil {
				writeJSON(w, http.StatusOK, types.SnapshotResponse{
					Version: view.Version,
					State:   view.Session.WithRemaining(d.Clock.Now()),
				})
				return
			}
		}
		if d.Archive != nil {
			if snap, err := d.Archive.Latest(r.Context(), code); err == nil {
				writeJSON(w, http.StatusOK, snap)
				return
			}
		}
		writeError(w, d.Logger, engine.ErrSessionNotFound)
	}
}

// SessionAction is the request/response path for the same actions the
// websocket accepts. The caller is identified by its bearer token.
func SessionAction(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := sessionCode(r)
		tok, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, d.Logger, auth.ErrUnauthorized)
			return
		}
		claims, err := d.Tokens.Parse(tok, code)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		var msg types.ClientMessage
		if !decode(w, r, &msg) {
			return
		}
		lb, err := d.Hub.Get(r.Context(), code)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
		defer cancel()

		var res lobby.Result
		if msg.Type == types.ActRetryPersist {
			res, err = lb.Retry(ctx, claims.PlayerID)
		} else {
			var cmd engine.Command
			cmd, err = ws.ToCommand(msg, claims.PlayerID)
			if err == nil {
				res, err = lb.Do(ctx, cmd)
			}
		}
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, types.SnapshotResponse{Version: res.Version, State: res.View})
	}
}

func SessionQR(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := d.Hub.Get(r.Context(), sessionCode(r))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		png, err := qrcode.Encode(d.joinURL(r, lb.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func CreateUser(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateUserRequest
		if !decode(w, r, &req) {
			return
		}
		name, err := engine.ValidateName(req.DisplayName)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		avatar, err := parseAvatar(req.Avatar)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		u, err := d.Repo.CreateUser(r.Context(), &store.CreateUserInput{
			ID:          d.IDs.NewUUID(),
			DisplayName: name,
			Avatar:      avatar.String(),
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, userView(u, nil))
	}
}

func GetUser(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		u, err := d.Repo.GetUser(r.Context(), &store.GetUserInput{UserID: id})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		hist, err := d.Repo.ListUserGames(r.Context(), &store.ListUserGamesInput{
			UserID: id,
			Limit:  queryInt(r, "limit"),
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, userView(u, hist.Games))
	}
}

func Leaderboard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Repo.Leaderboard(r.Context(), &store.LeaderboardInput{Limit: queryInt(r, "limit")})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		entries := make([]types.LeaderboardEntry, 0, len(out.Users))
		for i, u := range out.Users {
			entries = append(entries, types.LeaderboardEntry{
				Rank:        i + 1,
				UserID:      u.ID,
				DisplayName: u.DisplayName,
				Avatar:      storedAvatar(u.Avatar),
				Points:      u.Points,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type profile struct {
	name   string
	avatar engine.Avatar
	userID string
}

// profile validates a joining player's details. A linked account must
// exist; if the store cannot be reached the link is kept and the results
// write reports the failure later.
func (d Deps) profile(ctx context.Context, name string, av types.AvatarView, userID string) (profile, error) {
	name, err := engine.ValidateName(name)
	if err != nil {
		return profile{}, err
	}
	avatar, err := parseAvatar(av)
	if err != nil {
		return profile{}, err
	}
	if userID != "" {
		_, err := d.Repo.GetUser(ctx, &store.GetUserInput{UserID: userID})
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			return profile{}, err
		case err != nil:
			d.Logger.Warn("could not verify linked user", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return profile{name: name, avatar: avatar, userID: userID}, nil
}

func (d Deps) join(ctx context.Context, lb *lobby.Lobby, p profile) (lobby.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	return lb.Do(ctx, engine.Command{
		Type:   engine.CmdJoin,
		Name:   p.name,
		Avatar: p.avatar,
		UserID: p.userID,
	})
}

func (d Deps) respondJoined(w http.ResponseWriter, r *http.Request, code, playerID string) {
	tok, err := d.Tokens.Issue(code, playerID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.JoinResponse{
		Code:     code,
		PlayerID: playerID,
		Token:    tok,
		JoinURL:  d.joinURL(r, code),
	})
}

func (d Deps) joinURL(r *http.Request, code string) string {
	base := strings.TrimRight(d.PublicURL, "/")
	if base == "" {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join?code=" + url.QueryEscape(code)
}

func sessionCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func parseAvatar(av types.AvatarView) (engine.Avatar, error) {
	a := engine.Avatar{Kind: engine.AvatarKind(av.Kind), Value: av.Value}
	if a.IsZero() {
		return engine.DefaultAvatar, nil
	}
	if err := a.Validate(); err != nil {
		return engine.Avatar{}, err
	}
	return a, nil
}

func storedAvatar(s string) types.AvatarView {
	a, err := engine.ParseAvatar(s)
	if err != nil {
		a = engine.DefaultAvatar
	}
	return types.AvatarView{Kind: string(a.Kind), Value: a.Value}
}

func userView(u *store.User, games []*store.GameHistory) types.UserView {
	v := types.UserView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Avatar:      storedAvatar(u.Avatar),
		Points:      u.Points,
	}
	for _, g := range games {
		v.Games = append(v.Games, types.GameRecord{
			GameID:   g.GameID,
			Code:     g.Code,
			Prompt:   g.Prompt,
			PlayedAt: g.CompletedAt,
			Team:     g.Team,
			IsHost:   g.IsHost,
			Winner:   g.Winner,
			Points:   g.Points,
		})
	}
	return v
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
			Error: types.ErrorBody{Code: "BadRequest", Message: "invalid JSON body"},
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	body := ws.ErrorBody(err)
	status := statusFor(body.Code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, types.ErrorResponse{Error: body})
}

func statusFor(code string) int {
	switch code {
	case "SessionNotFound", "UserNotFound", "PlayerNotFound":
		return http.StatusNotFound
	case "InvalidName", "InvalidAvatar", "InvalidPrompt", "EmptyAnswer", "AnswerTooLong",
		"SegmentNotFound", "TeamNotFound", "UnsupportedCommand":
		return http.StatusBadRequest
	case "SessionFull", "IllegalPhaseTransition", "InsufficientPlayers",
		"SelfVoteForbidden", "AlreadyVoted":
		return http.StatusConflict
	case "Unauthorized":
		return http.StatusUnauthorized
	case "PersistenceUnavailable":
		return http.StatusServiceUnavailable
	case "Timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
