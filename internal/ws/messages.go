package ws

import (
	"context"
	"errors"

	"github.com/DoyleJ11/insane-brain-backend/internal/auth"
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

// ToCommand maps a client action onto an engine command for actor.
// RetryPersist is not an engine command and is handled by the caller.
func ToCommand(m types.ClientMessage, actor string) (engine.Command, error) {
	cmd := engine.Command{Actor: actor}
	switch m.Type {
	case types.ActStartGame:
		cmd.Type = engine.CmdStartGame
	case types.ActSubmitAnswer:
		cmd.Type = engine.CmdSubmitAnswer
		cmd.SegmentID = m.SegmentID
		cmd.Text = m.Text
	case types.ActProceedToVote:
		cmd.Type = engine.CmdProceedToVote
	case types.ActCastVote:
		if m.Team == nil {
			return engine.Command{}, engine.ErrTeamNotFound
		}
		cmd.Type = engine.CmdCastVote
		cmd.Team = engine.TeamID(*m.Team)
	case types.ActLeave:
		cmd.Type = engine.CmdLeave
	case types.ActEndSession:
		cmd.Type = engine.CmdEndSession
	default:
		return engine.Command{}, engine.ErrUnsupportedCommand
	}
	return cmd, nil
}

// ErrorBody turns err into the code/message pair sent to clients.
func ErrorBody(err error) types.ErrorBody {
	var ge engine.GameError
	switch {
	case errors.As(err, &ge):
		return types.ErrorBody{Code: ge.Code(), Message: ge.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return types.ErrorBody{Code: "Unauthorized", Message: "missing or invalid player token"}
	case errors.Is(err, store.ErrUserNotFound):
		return types.ErrorBody{Code: "UserNotFound", Message: err.Error()}
	case errors.Is(err, store.ErrPersistenceUnavailable):
		return types.ErrorBody{Code: "PersistenceUnavailable", Message: "storage is unavailable, try again later"}
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrorBody{Code: "Timeout", Message: "the session did not answer in time"}
	default:
		return types.ErrorBody{Code: "Internal", Message: "internal error"}
	}
}
