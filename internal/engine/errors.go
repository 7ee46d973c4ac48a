package engine

// GameError is a rule violation reported back to the acting client. The
// session is never modified when one is returned.
type GameError string

func (e GameError) Error() string {
	return string(e)
}

const (
	ErrSessionNotFound        GameError = "session not found"
	ErrSessionFull            GameError = "session is full"
	ErrInvalidName            GameError = "display name is required"
	ErrInvalidAvatar          GameError = "avatar must be an emoji or a photo reference"
	ErrInvalidPrompt          GameError = "prompt must be 1-20 characters"
	ErrIllegalPhaseTransition GameError = "action not allowed in the current phase"
	ErrInsufficientPlayers    GameError = "each team needs at least one player"
	ErrPlayerNotFound         GameError = "player not in session"
	ErrSegmentNotFound        GameError = "segment is not part of your team's story"
	ErrEmptyAnswer            GameError = "answer cannot be empty"
	ErrAnswerTooLong          GameError = "answer is too long"
	ErrTeamNotFound           GameError = "team does not exist"
	ErrSelfVoteForbidden      GameError = "you cannot vote for your own team"
	ErrAlreadyVoted           GameError = "already voted this round"
	ErrUnsupportedCommand     GameError = "unsupported command"
)

// Code returns the stable wire identifier for a rule violation.
func (e GameError) Code() string {
	switch e {
	case ErrSessionNotFound:
		return "SessionNotFound"
	case ErrSessionFull:
		return "SessionFull"
	case ErrInvalidName:
		return "InvalidName"
	case ErrInvalidAvatar:
		return "InvalidAvatar"
	case ErrInvalidPrompt:
		return "InvalidPrompt"
	case ErrIllegalPhaseTransition:
		return "IllegalPhaseTransition"
	case ErrInsufficientPlayers:
		return "InsufficientPlayers"
	case ErrPlayerNotFound:
		return "PlayerNotFound"
	case ErrSegmentNotFound:
		return "SegmentNotFound"
	case ErrEmptyAnswer:
		return "EmptyAnswer"
	case ErrAnswerTooLong:
		return "AnswerTooLong"
	case ErrTeamNotFound:
		return "TeamNotFound"
	case ErrSelfVoteForbidden:
		return "SelfVoteForbidden"
	case ErrAlreadyVoted:
		return "AlreadyVoted"
	default:
		return "UnsupportedCommand"
	}
}
