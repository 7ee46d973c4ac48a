package types

import "time"

// Client -> Server action types, sent over the websocket or posted to
// /sessions/{code}/actions.
const (
	ActStartGame     = "StartGame"
	ActSubmitAnswer  = "SubmitAnswer"
	ActProceedToVote = "ProceedToVote"
	ActCastVote      = "CastVote"
	ActLeave         = "Leave"
	ActEndSession    = "EndSession"
	ActRetryPersist  = "RetryPersist"
)

type ClientMessage struct {
	Type      string `json:"type"`
	SegmentID string `json:"segment_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Team      *int   `json:"team,omitempty"`
}

// Server -> Client message types.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)

type ServerMessage struct {
	Type    string       `json:"type"`
	Version int          `json:"version,omitempty"`
	State   *SessionView `json:"state,omitempty"`
	You     *You         `json:"you,omitempty"`
	Error   *ErrorBody   `json:"error,omitempty"`
}

// You tells a connection who it is. Spectators have no player id.
type You struct {
	PlayerID  string `json:"player_id,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateSessionRequest struct {
	Prompt string     `json:"prompt"`
	Name   string     `json:"name"`
	Avatar AvatarView `json:"avatar"`
	UserID string     `json:"user_id,omitempty"`
}

type JoinRequest struct {
	Name   string     `json:"name"`
	Avatar AvatarView `json:"avatar"`
	UserID string     `json:"user_id,omitempty"`
}

// JoinResponse answers both session creation and joining.
type JoinResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
	JoinURL  string `json:"join_url"`
}

type SnapshotResponse struct {
	Version  int         `json:"version"`
	State    SessionView `json:"state"`
	Archived bool        `json:"archived,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type CreateUserRequest struct {
	DisplayName string     `json:"display_name"`
	Avatar      AvatarView `json:"avatar"`
}

type UserView struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Avatar      AvatarView   `json:"avatar"`
	Points      int          `json:"points"`
	Games       []GameRecord `json:"games,omitempty"`
}

// GameRecord is one past game from a user's point of view.
type GameRecord struct {
	GameID   string    `json:"game_id"`
	Code     string    `json:"code"`
	Prompt   string    `json:"prompt"`
	PlayedAt time.Time `json:"played_at"`
	Team     int       `json:"team"`
	IsHost   bool      `json:"is_host"`
	Winner   bool      `json:"winner"`
	Points   int       `json:"points"`
}

type LeaderboardEntry struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Avatar      AvatarView `json:"avatar"`
	Points      int        `json:"points"`
}
