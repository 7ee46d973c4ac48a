package engine

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength   = 24
	MaxPromptLength = 20
)

// ValidateName trims a display name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// ValidatePrompt trims the session prompt word and checks its length.
func ValidatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", ErrInvalidPrompt
	}
	return prompt, nil
}

func join(s State, cmd Command) ([]Event, State, error) {
	if s.Phase() != PhaseLobby {
		return nil, s, ErrIllegalPhaseTransition
	}
	if cmd.Actor == "" {
		return nil, s, ErrPlayerNotFound
	}
	if _, taken := s.Players[cmd.Actor]; taken {
		return nil, s, ErrIllegalPhaseTransition
	}
	if s.Rules.MaxPlayers > 0 && len(s.Players) >= s.Rules.MaxPlayers {
		return nil, s, ErrSessionFull
	}
	name, err := ValidateName(cmd.Name)
	if err != nil {
		return nil, s, err
	}
	avatar := cmd.Avatar
	if avatar.IsZero() {
		avatar = DefaultAvatar
	}
	if err := avatar.Validate(); err != nil {
		return nil, s, err
	}

	team := TeamA
	if len(s.Teams[TeamB].Members) < len(s.Teams[TeamA].Members) {
		team = TeamB
	}

	s.seq++
	p := &Player{
		ID:       cmd.Actor,
		UserID:   cmd.UserID,
		Name:     name,
		Avatar:   avatar,
		Team:     team,
		IsHost:   len(s.Players) == 0,
		JoinSeq:  s.seq,
		JoinedAt: cmd.At,
	}

	players := make(map[string]*Player, len(s.Players)+1)
	for id, other := range s.Players {
		players[id] = other
	}
	players[p.ID] = p
	s.Players = players
	s.Order = append(append([]string(nil), s.Order...), p.ID)
	s.Teams[team].Members = append(append([]string(nil), s.Teams[team].Members...), p.ID)

	events := []Event{{Type: EvtPlayerJoined, PlayerID: p.ID, Team: team}}
	if p.IsHost {
		events = append(events, Event{Type: EvtHostChanged, PlayerID: p.ID})
	}
	return events, s, nil
}

func leave(s State, cmd Command) ([]Event, State, error) {
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}

	players := make(map[string]*Player, len(s.Players))
	for id, other := range s.Players {
		if id != p.ID {
			players[id] = other
		}
	}
	s.Players = players
	s.Order = removeID(s.Order, p.ID)
	s.Teams[p.Team].Members = removeID(s.Teams[p.Team].Members, p.ID)

	events := []Event{{Type: EvtPlayerLeft, PlayerID: p.ID, Team: p.Team}}

	if len(s.Order) == 0 {
		s.Closed = true
		return append(events, Event{Type: EvtSessionClosed}), s, nil
	}

	if p.IsHost {
		next := *s.Players[s.Order[0]]
		next.IsHost = true
		s.Players[next.ID] = &next
		events = append(events, Event{Type: EvtHostChanged, PlayerID: next.ID})
	}

	// The leaver may have been the last one holding up the phase.
	switch st := s.Stage.(type) {
	case *CollectingStage:
		if collectionDone(s, st) {
			more, next, err := reveal(s, st)
			if err != nil {
				return nil, s, err
			}
			return append(events, more...), next, nil
		}
	case *VotingStage:
		if votingDone(s, st) {
			more, next, err := complete(s, st)
			if err != nil {
				return nil, s, err
			}
			return append(events, more...), next, nil
		}
	}
	return events, s, nil
}

func endSession(s State, cmd Command) ([]Event, State, error) {
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}
	if !p.IsHost {
		return nil, s, ErrIllegalPhaseTransition
	}
	s.Closed = true
	return []Event{{Type: EvtSessionClosed, PlayerID: p.ID}}, s, nil
}
