package engine

func castVote(s State, cmd Command) ([]Event, State, error) {
	st, ok := s.Stage.(*VotingStage)
	if !ok || !cmd.At.Before(st.Deadline) {
		return nil, s, ErrIllegalPhaseTransition
	}
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}
	if _, voted := st.Votes[p.ID]; voted {
		return nil, s, ErrAlreadyVoted
	}
	if !cmd.Team.Valid() {
		return nil, s, ErrTeamNotFound
	}
	if cmd.Team == p.Team {
		return nil, s, ErrSelfVoteForbidden
	}

	votes := make(map[string]Vote, len(st.Votes)+1)
	for k, v := range st.Votes {
		votes[k] = v
	}
	votes[p.ID] = Vote{VoterID: p.ID, Team: cmd.Team, At: cmd.At}
	next := &VotingStage{Stories: st.Stories, Deadline: st.Deadline, Votes: votes}
	s.Stage = next

	events := []Event{{Type: EvtVoteCast, PlayerID: p.ID, Team: cmd.Team}}
	if votingDone(s, next) {
		more, done, err := complete(s, next)
		if err != nil {
			return nil, s, err
		}
		return append(events, more...), done, nil
	}
	return events, s, nil
}

func votingDone(s State, st *VotingStage) bool {
	for _, id := range s.Order {
		if _, ok := st.Votes[id]; !ok {
			return false
		}
	}
	return true
}

// Tally counts the recorded votes. It has no side effects; points are only
// ever granted when voting completes.
func Tally(s State) (Result, error) {
	switch st := s.Stage.(type) {
	case *VotingStage:
		return tally(st.Votes), nil
	case *CompleteStage:
		return st.Result, nil
	}
	return Result{}, ErrIllegalPhaseTransition
}

func tally(votes map[string]Vote) Result {
	var r Result
	for _, v := range votes {
		if v.Team.Valid() {
			r.Counts[v.Team]++
		}
	}
	switch {
	case r.Counts[TeamA] > r.Counts[TeamB]:
		r.Winner = TeamA
	case r.Counts[TeamB] > r.Counts[TeamA]:
		r.Winner = TeamB
	default:
		r.Tie = true
	}
	return r
}

// complete closes the round and awards points to the winners' current
// members. This is the only place points change.
func complete(s State, st *VotingStage) ([]Event, State, error) {
	result := tally(st.Votes)
	awards := make(map[string]int)
	players := make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		players[id] = p
	}
	for _, team := range result.Winners() {
		for _, id := range s.Teams[team].Members {
			p := *players[id]
			p.Points += s.Rules.WinPoints
			players[id] = &p
			awards[id] = s.Rules.WinPoints
		}
	}

	next := s
	next.Players = players
	next, evt, err := enter(next, &CompleteStage{
		Stories: st.Stories,
		Votes:   st.Votes,
		Result:  result,
		Awards:  awards,
	})
	if err != nil {
		return nil, s, err
	}
	return []Event{evt, {Type: EvtGameCompleted}}, next, nil
}
