package types

import "time"

// SessionView is the state every attached client sees after each commit.
// Answers stay hidden until the stories are revealed, and individual votes
// until the round is complete.
type SessionView struct {
	Code        string           `json:"code"`
	Prompt      string           `json:"prompt"`
	Phase       string           `json:"phase"`
	CreatedAt   time.Time        `json:"created_at"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	RemainingMS *int64           `json:"remaining_ms,omitempty"`
	HostID      string           `json:"host_id,omitempty"`
	Players     []PlayerView     `json:"players"`
	Teams       []TeamView       `json:"teams"`
	Progress    map[string]int   `json:"progress,omitempty"` // player id -> segments answered
	Voted       []string         `json:"voted,omitempty"`
	Result      *ResultView      `json:"result,omitempty"`
	Persistence *PersistenceView `json:"persistence,omitempty"`
	Closed      bool             `json:"closed,omitempty"`
}

// WithRemaining returns a copy with RemainingMS computed against now. The
// absolute deadline is the source of truth; remaining time is recomputed
// every time a snapshot is sent.
func (v SessionView) WithRemaining(now time.Time) SessionView {
	if v.Deadline == nil {
		v.RemainingMS = nil
		return v
	}
	ms := v.Deadline.Sub(now).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	v.RemainingMS = &ms
	return v
}

type AvatarView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type PlayerView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Avatar AvatarView `json:"avatar"`
	Team   int        `json:"team"`
	Points int        `json:"points"`
	IsHost bool       `json:"is_host"`
}

type SegmentView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}

type TeamView struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Members  []string      `json:"members"`
	Segments []SegmentView `json:"segments"`
	Story    *StoryView    `json:"story,omitempty"`
}

type BlankView struct {
	SegmentID string `json:"segment_id"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

type StoryView struct {
	TemplateID string      `json:"template_id"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	Blanks     []BlankView `json:"blanks"`
}

type ResultView struct {
	Counts []int          `json:"counts"`
	Winner *int           `json:"winner,omitempty"`
	Tie    bool           `json:"tie"`
	Awards map[string]int `json:"awards,omitempty"`
	Votes  map[string]int `json:"votes,omitempty"` // voter id -> team
}

// PersistenceView reports how saving the finished game went.
type PersistenceView struct {
	Status string `json:"status"` // pending | saved | failed
	Error  string `json:"error,omitempty"`
}

const (
	PersistPending = "pending"
	PersistSaved   = "saved"
	PersistFailed  = "failed"
)
