package engine

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseCollecting Phase = "collecting"
	PhaseRevealing  Phase = "revealing"
	PhaseVoting     Phase = "voting"
	PhaseComplete   Phase = "complete"
)

// PhaseOrder is the only path a session takes. There is no way back and no
// way to skip ahead; a finished session is replaced, never reset.
var PhaseOrder = []Phase{
	PhaseLobby,
	PhaseCollecting,
	PhaseRevealing,
	PhaseVoting,
	PhaseComplete,
}

func (p Phase) index() int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Next returns the phase that follows p, if any.
func (p Phase) Next() (Phase, bool) {
	i := p.index()
	if i < 0 || i == len(PhaseOrder)-1 {
		return "", false
	}
	return PhaseOrder[i+1], true
}

func (p Phase) CanTransitionTo(target Phase) bool {
	next, ok := p.Next()
	return ok && next == target
}

// HasDeadline reports whether the phase ends on a timer as well as on
// player actions.
func (p Phase) HasDeadline() bool {
	return p == PhaseCollecting || p == PhaseVoting
}

func (p Phase) Terminal() bool {
	return p == PhaseComplete
}
