package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/insane-brain-backend/internal/story"
)

const MaxAnswerLength = 80

func submitAnswer(s State, cmd Command) ([]Event, State, error) {
	st, ok := s.Stage.(*CollectingStage)
	if !ok || !cmd.At.Before(st.Deadline) {
		return nil, s, ErrIllegalPhaseTransition
	}
	p, ok := s.Players[cmd.Actor]
	if !ok {
		return nil, s, ErrPlayerNotFound
	}
	if _, ok := s.Teams[p.Team].Template.Segment(cmd.SegmentID); !ok {
		return nil, s, ErrSegmentNotFound
	}
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, s, ErrEmptyAnswer
	}
	if utf8.RuneCountInString(text) > MaxAnswerLength {
		return nil, s, ErrAnswerTooLong
	}

	s.seq++
	subs := make(map[SubmissionKey]Submission, len(st.Submissions)+1)
	for k, v := range st.Submissions {
		subs[k] = v
	}
	subs[SubmissionKey{PlayerID: p.ID, SegmentID: cmd.SegmentID}] = Submission{
		PlayerID:  p.ID,
		SegmentID: cmd.SegmentID,
		Team:      p.Team,
		Text:      text,
		Seq:       s.seq,
		At:        cmd.At,
	}
	next := &CollectingStage{Deadline: st.Deadline, Submissions: subs}
	s.Stage = next

	events := []Event{{Type: EvtAnswerSubmitted, PlayerID: p.ID, Team: p.Team}}
	if collectionDone(s, next) {
		more, revealed, err := reveal(s, next)
		if err != nil {
			return nil, s, err
		}
		return append(events, more...), revealed, nil
	}
	return events, s, nil
}

// collectionDone reports whether every current player has answered every
// segment of their team's template.
func collectionDone(s State, st *CollectingStage) bool {
	for _, id := range s.Order {
		p := s.Players[id]
		for _, seg := range s.Teams[p.Team].Template.Segments {
			if _, ok := st.Submissions[SubmissionKey{PlayerID: id, SegmentID: seg.ID}]; !ok {
				return false
			}
		}
	}
	return true
}

// Progress counts, per player, how many segments they have answered so far.
func Progress(s State) map[string]int {
	st, ok := s.Stage.(*CollectingStage)
	if !ok {
		return nil
	}
	out := make(map[string]int, len(s.Order))
	for k := range st.Submissions {
		if _, live := s.Players[k.PlayerID]; live {
			out[k.PlayerID]++
		}
	}
	return out
}

func reveal(s State, st *CollectingStage) ([]Event, State, error) {
	var stories [NumTeams]story.Story
	for _, t := range s.Teams {
		stories[t.ID] = assembleStory(s, st.Submissions, t.ID)
	}
	next, evt, err := enter(s, &RevealingStage{Stories: stories})
	if err != nil {
		return nil, s, err
	}
	return []Event{evt}, next, nil
}

// AssembleStory renders a team's story from the submissions present now. Each
// segment takes the text of whichever team member wrote it last.
func AssembleStory(s State, team TeamID) (story.Story, error) {
	if !team.Valid() {
		return story.Story{}, ErrTeamNotFound
	}
	if st, ok := s.Stage.(*CollectingStage); ok {
		return assembleStory(s, st.Submissions, team), nil
	}
	if stories, ok := s.Stories(); ok {
		return stories[team], nil
	}
	return assembleStory(s, nil, team), nil
}

func assembleStory(s State, subs map[SubmissionKey]Submission, team TeamID) story.Story {
	latest := make(map[string]Submission)
	for _, sub := range subs {
		if sub.Team != team {
			continue
		}
		if cur, ok := latest[sub.SegmentID]; !ok || sub.Seq > cur.Seq {
			latest[sub.SegmentID] = sub
		}
	}
	answers := make(map[string]story.Answer, len(latest))
	for id, sub := range latest {
		answers[id] = story.Answer{Text: sub.Text, AuthorID: sub.PlayerID}
	}
	return s.Teams[team].Template.Render(s.Prompt, answers)
}
