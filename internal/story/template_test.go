package story

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default catalog: %v", err)
	}
}

func TestRender_FillsAnswersAndFallbacks(t *testing.T) {
	tmpl := Default()[0]

	got := tmpl.Render("dragons", map[string]Answer{
		"noun":      {Text: "banana", AuthorID: "p1"},
		"adjective": {Text: "sparkly", AuthorID: "p2"},
		"verb":      {Text: "dance", AuthorID: "p1"},
	})

	want := "Once upon a time, in the land of dragons, there was a banana who was incredibly sparkly. " +
		"Every morning, it would dance through the clouds while " + FallbackAnswer + " rushed past its wings. The end."
	if got.Text != want {
		t.Fatalf("text:\n got  %q\n want %q", got.Text, want)
	}
	if len(got.Blanks) != 4 {
		t.Fatalf("want 4 blanks, got %d", len(got.Blanks))
	}
	last := got.Blanks[3]
	if !last.Fallback || last.AuthorID != "" {
		t.Fatalf("unanswered blank should be a fallback, got %+v", last)
	}
	if got.Blanks[0].AuthorID != "p1" {
		t.Fatalf("want author p1 for noun, got %q", got.Blanks[0].AuthorID)
	}
}

func TestRender_BlankAnswerUsesFallback(t *testing.T) {
	tmpl := Default()[0]
	got := tmpl.Render("x", map[string]Answer{"noun": {Text: "   ", AuthorID: "p1"}})
	if !got.Blanks[0].Fallback {
		t.Fatalf("whitespace answer should fall back")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		tmpl Template
		want error
	}{
		{
			name: "duplicate segment",
			tmpl: Template{ID: "t", Segments: []Segment{{ID: "a"}, {ID: "a"}}, Pieces: []Piece{Blank("a")}},
			want: ErrDuplicateSegment,
		},
		{
			name: "unknown blank",
			tmpl: Template{ID: "t", Segments: []Segment{{ID: "a"}}, Pieces: []Piece{Blank("a"), Blank("b")}},
			want: ErrUnknownSegment,
		},
		{
			name: "unused segment",
			tmpl: Template{ID: "t", Segments: []Segment{{ID: "a"}, {ID: "b"}}, Pieces: []Piece{Blank("a")}},
			want: ErrUnusedSegment,
		},
		{
			name: "ok",
			tmpl: Template{ID: "t", Segments: []Segment{{ID: "a"}}, Pieces: []Piece{Text("x "), Blank("a")}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tmpl.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPair_Distinct(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		pair, err := Default().Pair(rng)
		if err != nil {
			t.Fatalf("pair: %v", err)
		}
		if pair[0].ID == pair[1].ID {
			t.Fatalf("expected distinct templates, got %q twice", pair[0].ID)
		}
	}

	if _, err := (Catalog{Default()[0]}).Pair(rng); !errors.Is(err, ErrCatalogTooSmall) {
		t.Fatalf("want ErrCatalogTooSmall, got %v", err)
	}
}
