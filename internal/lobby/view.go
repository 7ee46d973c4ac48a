package lobby

import (
	"github.com/DoyleJ11/insane-brain-backend/internal/engine"
	"github.com/DoyleJ11/insane-brain-backend/internal/story"
	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

// BuildView renders the client-facing snapshot of s. Remaining time is left
// for the sender to fill in.
func BuildView(s engine.State, persist *types.PersistenceView) types.SessionView {
	v := types.SessionView{
		Code:      s.Code,
		Prompt:    s.Prompt,
		Phase:     string(s.Phase()),
		CreatedAt: s.CreatedAt,
		Players:   make([]types.PlayerView, 0, len(s.Order)),
		Teams:     make([]types.TeamView, 0, engine.NumTeams),
		Closed:    s.Closed,
	}
	if dl, ok := s.Deadline(); ok {
		v.Deadline = &dl
	}
	if h := s.Host(); h != nil {
		v.HostID = h.ID
	}
	for _, id := range s.Order {
		p := s.Players[id]
		v.Players = append(v.Players, types.PlayerView{
			ID:     p.ID,
			Name:   p.Name,
			Avatar: avatarView(p.Avatar),
			Team:   int(p.Team),
			Points: p.Points,
			IsHost: p.IsHost,
		})
	}

	stories, revealed := s.Stories()
	for _, t := range s.Teams {
		tv := types.TeamView{
			ID:       int(t.ID),
			Name:     t.Name,
			Members:  append([]string{}, t.Members...),
			Segments: make([]types.SegmentView, 0, len(t.Template.Segments)),
		}
		for _, seg := range t.Template.Segments {
			tv.Segments = append(tv.Segments, types.SegmentView{ID: seg.ID, Label: seg.Label, Hint: seg.Hint})
		}
		if revealed {
			sv := storyView(stories[t.ID])
			tv.Story = &sv
		}
		v.Teams = append(v.Teams, tv)
	}

	switch st := s.Stage.(type) {
	case *engine.CollectingStage:
		v.Progress = engine.Progress(s)
	case *engine.VotingStage:
		for _, id := range s.Order {
			if _, ok := st.Votes[id]; ok {
				v.Voted = append(v.Voted, id)
			}
		}
	case *engine.CompleteStage:
		rv := &types.ResultView{
			Counts: st.Result.Counts[:],
			Tie:    st.Result.Tie,
			Awards: st.Awards,
			Votes:  make(map[string]int, len(st.Votes)),
		}
		if !st.Result.Tie {
			w := int(st.Result.Winner)
			rv.Winner = &w
		}
		for id, vote := range st.Votes {
			rv.Votes[id] = int(vote.Team)
		}
		v.Result = rv
	}

	if persist != nil {
		p := *persist
		v.Persistence = &p
	}
	return v
}

func avatarView(a engine.Avatar) types.AvatarView {
	return types.AvatarView{Kind: string(a.Kind), Value: a.Value}
}

func storyView(s story.Story) types.StoryView {
	out := types.StoryView{
		TemplateID: s.TemplateID,
		Title:      s.Title,
		Text:       s.Text,
		Blanks:     make([]types.BlankView, 0, len(s.Blanks)),
	}
	for _, b := range s.Blanks {
		out.Blanks = append(out.Blanks, types.BlankView{
			SegmentID: b.SegmentID,
			Label:     b.Label,
			Text:      b.Text,
			AuthorID:  b.AuthorID,
			Fallback:  b.Fallback,
		})
	}
	return out
}
