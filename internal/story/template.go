package story

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackAnswer fills every blank nobody on the team answered in time.
const FallbackAnswer = "something unspeakable"

var (
	ErrDuplicateSegment = errors.New("duplicate segment id")
	ErrUnknownSegment   = errors.New("blank refers to unknown segment")
	ErrUnusedSegment    = errors.New("segment never appears in the template")
)

// Segment is one blank players fill without seeing the surrounding text. The
// hint is placeholder text only; answers are never validated against it.
type Segment struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}

type pieceKind int

const (
	pieceText pieceKind = iota
	piecePrompt
	pieceBlank
)

// Piece is one run of a template: literal text, the session prompt word, or
// a blank referring to a Segment by id.
type Piece struct {
	kind pieceKind
	text string
}

func Text(s string) Piece          { return Piece{kind: pieceText, text: s} }
func PromptWord() Piece            { return Piece{kind: piecePrompt} }
func Blank(segmentID string) Piece { return Piece{kind: pieceBlank, text: segmentID} }

type Template struct {
	ID       string
	Title    string
	Segments []Segment
	Pieces   []Piece
}

// Segment looks up a blank by id.
func (t Template) Segment(id string) (Segment, bool) {
	for _, seg := range t.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// Validate checks that segment ids are unique and that every blank and every
// segment line up.
func (t Template) Validate() error {
	seen := make(map[string]bool, len(t.Segments))
	for _, seg := range t.Segments {
		if _, dup := seen[seg.ID]; dup {
			return fmt.Errorf("%s: %w: %q", t.ID, ErrDuplicateSegment, seg.ID)
		}
		seen[seg.ID] = false
	}
	for _, p := range t.Pieces {
		if p.kind != pieceBlank {
			continue
		}
		if _, ok := seen[p.text]; !ok {
			return fmt.Errorf("%s: %w: %q", t.ID, ErrUnknownSegment, p.text)
		}
		seen[p.text] = true
	}
	for _, seg := range t.Segments {
		if !seen[seg.ID] {
			return fmt.Errorf("%s: %w: %q", t.ID, ErrUnusedSegment, seg.ID)
		}
	}
	return nil
}

// Answer is the winning submission for one segment.
type Answer struct {
	Text     string
	AuthorID string
}

type FilledBlank struct {
	SegmentID string `json:"segment_id"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// Story is a rendered template.
type Story struct {
	TemplateID string        `json:"template_id"`
	Title      string        `json:"title"`
	Text       string        `json:"text"`
	Blanks     []FilledBlank `json:"blanks"`
}

// Render fills the template. It depends only on its arguments, so rendering
// the same answers twice yields the same story.
func (t Template) Render(prompt string, answers map[string]Answer) Story {
	filled := make(map[string]FilledBlank, len(t.Segments))
	blanks := make([]FilledBlank, 0, len(t.Segments))
	for _, seg := range t.Segments {
		fb := FilledBlank{SegmentID: seg.ID, Label: seg.Label}
		if a, ok := answers[seg.ID]; ok && strings.TrimSpace(a.Text) != "" {
			fb.Text = a.Text
			fb.AuthorID = a.AuthorID
		} else {
			fb.Text = FallbackAnswer
			fb.Fallback = true
		}
		filled[seg.ID] = fb
		blanks = append(blanks, fb)
	}

	var b strings.Builder
	for _, p := range t.Pieces {
		switch p.kind {
		case pieceText:
			b.WriteString(p.text)
		case piecePrompt:
			b.WriteString(prompt)
		case pieceBlank:
			b.WriteString(filled[p.text].Text)
		}
	}

	return Story{
		TemplateID: t.ID,
		Title:      t.Title,
		Text:       b.String(),
		Blanks:     blanks,
	}
}
