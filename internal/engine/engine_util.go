package engine

import (
	"time"

	"github.com/DoyleJ11/insane-brain-backend/internal/story"
)

func DefaultRules() Rules {
	return Rules{
		MaxPlayers: 12,
		AnswerTime: 5 * time.Minute,
		VoteTime:   60 * time.Second,
		WinPoints:  10,
	}
}

// NewState returns an empty lobby. The prompt is trimmed but not validated;
// callers validate it with ValidatePrompt before creating the session.
func NewState(gameID, code, prompt string, createdAt time.Time, rules Rules, templates [NumTeams]story.Template) State {
	s := State{
		GameID:    gameID,
		Code:      code,
		Prompt:    prompt,
		CreatedAt: createdAt,
		Rules:     rules,
		Players:   map[string]*Player{},
		Stage:     &LobbyStage{},
	}
	if p, err := ValidatePrompt(prompt); err == nil {
		s.Prompt = p
	}
	for i := range s.Teams {
		s.Teams[i] = Team{ID: TeamID(i), Name: DefaultTeamNames[i], Template: templates[i]}
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
