package engine

import (
	"time"

	"github.com/DoyleJ11/insane-brain-backend/internal/story"
)

type TeamID int

const (
	TeamA TeamID = 0
	TeamB TeamID = 1
)

const NumTeams = 2

func (t TeamID) Valid() bool { return t == TeamA || t == TeamB }

var DefaultTeamNames = [NumTeams]string{"Sparkly Unicorns", "Bouncy Pandas"}

type Player struct {
	ID       string
	UserID   string // linked account, empty for guests
	Name     string
	Avatar   Avatar
	Team     TeamID
	Points   int
	IsHost   bool
	JoinSeq  int
	JoinedAt time.Time
}

type Team struct {
	ID       TeamID
	Name     string
	Members  []string
	Template story.Template
}

type Rules struct {
	MaxPlayers int
	AnswerTime time.Duration
	VoteTime   time.Duration
	WinPoints  int
}

type SubmissionKey struct {
	PlayerID  string
	SegmentID string
}

type Submission struct {
	PlayerID  string
	SegmentID string
	Team      TeamID // author's team when written
	Text      string
	Seq       int
	At        time.Time
}

type Vote struct {
	VoterID string
	Team    TeamID
	At      time.Time
}

type Result struct {
	Counts [NumTeams]int
	Winner TeamID // meaningless when Tie
	Tie    bool
}

// Winners lists every team whose members are awarded points.
func (r Result) Winners() []TeamID {
	if r.Tie {
		return []TeamID{TeamA, TeamB}
	}
	return []TeamID{r.Winner}
}

// Stage holds the data that only exists during one phase. The concrete type
// is the phase.
type Stage interface {
	Phase() Phase
	isStage()
}

type LobbyStage struct{}

type CollectingStage struct {
	Deadline    time.Time
	Submissions map[SubmissionKey]Submission
}

type RevealingStage struct {
	Stories [NumTeams]story.Story
}

type VotingStage struct {
	Stories  [NumTeams]story.Story
	Deadline time.Time
	Votes    map[string]Vote
}

type CompleteStage struct {
	Stories [NumTeams]story.Story
	Votes   map[string]Vote
	Result  Result
	Awards  map[string]int // player id -> points awarded
}

func (*LobbyStage) Phase() Phase      { return PhaseLobby }
func (*CollectingStage) Phase() Phase { return PhaseCollecting }
func (*RevealingStage) Phase() Phase  { return PhaseRevealing }
func (*VotingStage) Phase() Phase     { return PhaseVoting }
func (*CompleteStage) Phase() Phase   { return PhaseComplete }

func (*LobbyStage) isStage()      {}
func (*CollectingStage) isStage() {}
func (*RevealingStage) isStage()  {}
func (*VotingStage) isStage()     {}
func (*CompleteStage) isStage()   {}

// State is the canonical state of one session. Its maps are shared between
// copies; only the session's owner may hold it.
type State struct {
	GameID    string
	Code      string
	Prompt    string
	CreatedAt time.Time
	Rules     Rules
	Players   map[string]*Player
	Order     []string // player ids in join order
	Teams     [NumTeams]Team
	Stage     Stage
	Closed    bool
	seq       int
}

func (s State) Phase() Phase { return s.Stage.Phase() }

// Deadline returns the deadline of the current phase, if it has one.
func (s State) Deadline() (time.Time, bool) {
	switch st := s.Stage.(type) {
	case *CollectingStage:
		return st.Deadline, true
	case *VotingStage:
		return st.Deadline, true
	}
	return time.Time{}, false
}

func (s State) Host() *Player {
	for _, id := range s.Order {
		if p := s.Players[id]; p.IsHost {
			return p
		}
	}
	return nil
}

// Stories returns the assembled stories once they exist.
func (s State) Stories() ([NumTeams]story.Story, bool) {
	switch st := s.Stage.(type) {
	case *RevealingStage:
		return st.Stories, true
	case *VotingStage:
		return st.Stories, true
	case *CompleteStage:
		return st.Stories, true
	}
	return [NumTeams]story.Story{}, false
}

type CommandType string

const (
	CmdJoin            CommandType = "Join"
	CmdLeave           CommandType = "Leave"
	CmdStartGame       CommandType = "StartGame"
	CmdSubmitAnswer    CommandType = "SubmitAnswer"
	CmdProceedToVote   CommandType = "ProceedToVote"
	CmdCastVote        CommandType = "CastVote"
	CmdDeadlineExpired CommandType = "DeadlineExpired"
	CmdEndSession      CommandType = "EndSession"
)

/*
	CmdJoin            -> EvtPlayerJoined (+ EvtHostChanged for the first player)
	CmdLeave           -> EvtPlayerLeft -> EvtHostChanged | EvtSessionClosed, may finish collecting or voting
	CmdStartGame       -> EvtPhaseChanged(collecting)
	CmdSubmitAnswer    -> EvtAnswerSubmitted -> EvtPhaseChanged(revealing) once everyone is done
	CmdProceedToVote   -> EvtPhaseChanged(voting)
	CmdCastVote        -> EvtVoteCast -> EvtPhaseChanged(complete) -> EvtGameCompleted once everyone voted
	CmdDeadlineExpired -> EvtDeadlineExpired -> same transition as above, or nothing if the phase already moved on
	CmdEndSession      -> EvtSessionClosed
*/

// Command is one action against a session. Actor is the acting player; for
// CmdJoin it is the id the new player will get. At is stamped by the session
// owner, never by the client.
type Command struct {
	Type  CommandType
	Actor string
	At    time.Time

	Name   string
	Avatar Avatar
	UserID string

	SegmentID string
	Text      string

	Team TeamID

	Phase Phase // CmdDeadlineExpired only
}

type EventType string

const (
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtPlayerLeft      EventType = "PlayerLeft"
	EvtHostChanged     EventType = "HostChanged"
	EvtAnswerSubmitted EventType = "AnswerSubmitted"
	EvtVoteCast        EventType = "VoteCast"
	EvtDeadlineExpired EventType = "DeadlineExpired"
	EvtPhaseChanged    EventType = "PhaseChanged"
	EvtGameCompleted   EventType = "GameCompleted"
	EvtSessionClosed   EventType = "SessionClosed"
)

type Event struct {
	Type     EventType
	PlayerID string
	Team     TeamID
	Phase    Phase
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s and nothing has been modified.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.Closed {
		return nil, s, ErrSessionNotFound
	}

	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd)
	case CmdLeave:
		return leave(s, cmd)
	case CmdEndSession:
		return endSession(s, cmd)
	case CmdStartGame:
		return startGame(s, cmd)
	case CmdSubmitAnswer:
		return submitAnswer(s, cmd)
	case CmdProceedToVote:
		return proceedToVote(s, cmd)
	case CmdCastVote:
		return castVote(s, cmd)
	case CmdDeadlineExpired:
		return expireDeadline(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// enter moves s into next, refusing anything but the single forward step.
func enter(s State, next Stage) (State, Event, error) {
	if !s.Phase().CanTransitionTo(next.Phase()) {
		return s, Event{}, ErrIllegalPhaseTransition
	}
	s.Stage = next
	return s, Event{Type: EvtPhaseChanged, Phase: next.Phase()}, nil
}

func startGame(s State, cmd Command) ([]Event, State, error) {
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}
	if s.Phase() != PhaseLobby || !p.IsHost {
		return nil, s, ErrIllegalPhaseTransition
	}
	if _, err := ValidatePrompt(s.Prompt); err != nil {
		return nil, s, err
	}
	for _, t := range s.Teams {
		if len(t.Members) == 0 {
			return nil, s, ErrInsufficientPlayers
		}
	}

	next, evt, err := enter(s, &CollectingStage{
		Deadline:    cmd.At.Add(s.Rules.AnswerTime),
		Submissions: make(map[SubmissionKey]Submission),
	})
	if err != nil {
		return nil, s, err
	}
	return []Event{evt}, next, nil
}

func proceedToVote(s State, cmd Command) ([]Event, State, error) {
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}
	st, revealing := s.Stage.(*RevealingStage)
	if !revealing || !p.IsHost {
		return nil, s, ErrIllegalPhaseTransition
	}

	next, evt, err := enter(s, &VotingStage{
		Stories:  st.Stories,
		Deadline: cmd.At.Add(s.Rules.VoteTime),
		Votes:    make(map[string]Vote),
	})
	if err != nil {
		return nil, s, err
	}
	return []Event{evt}, next, nil
}

// expireDeadline forces the timed transition. A stale expiry, one for a phase
// the session already left or one that arrives early, changes nothing.
func expireDeadline(s State, cmd Command) ([]Event, State, error) {
	if s.Phase() != cmd.Phase {
		return nil, s, nil
	}
	deadline, ok := s.Deadline()
	if !ok || cmd.At.Before(deadline) {
		return nil, s, nil
	}

	expired := Event{Type: EvtDeadlineExpired, Phase: cmd.Phase}
	switch st := s.Stage.(type) {
	case *CollectingStage:
		events, next, err := reveal(s, st)
		if err != nil {
			return nil, s, err
		}
		return append([]Event{expired}, events...), next, nil
	case *VotingStage:
		events, next, err := complete(s, st)
		if err != nil {
			return nil, s, err
		}
		return append([]Event{expired}, events...), next, nil
	}
	return nil, s, nil
}
