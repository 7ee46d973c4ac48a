package story

import (
	"errors"
	"math/rand"
)

var ErrCatalogTooSmall = errors.New("catalog needs at least two templates")

// Catalog is the pool session templates are drawn from.
type Catalog []Template

// Pair draws two distinct templates, one per team.
func (c Catalog) Pair(rng *rand.Rand) ([2]Template, error) {
	if len(c) < 2 {
		return [2]Template{}, ErrCatalogTooSmall
	}
	perm := rng.Perm(len(c))
	return [2]Template{c[perm[0]], c[perm[1]]}, nil
}

// Validate checks every template in the catalog.
func (c Catalog) Validate() error {
	if len(c) < 2 {
		return ErrCatalogTooSmall
	}
	for _, t := range c {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the built-in templates. Each mentions the prompt word so the
// two team stories share a theme.
func Default() Catalog {
	return Catalog{
		{
			ID:    "once-upon-a-time",
			Title: "Once Upon a Time",
			Segments: []Segment{
				{ID: "noun", Label: "noun", Hint: "e.g., banana"},
				{ID: "adjective", Label: "adjective", Hint: "e.g., sparkly"},
				{ID: "verb", Label: "verb", Hint: "e.g., dance"},
				{ID: "whoosh", Label: "something that goes whoosh", Hint: "e.g., wind"},
			},
			Pieces: []Piece{
				Text("Once upon a time, in the land of "), PromptWord(),
				Text(", there was a "), Blank("noun"),
				Text(" who was incredibly "), Blank("adjective"),
				Text(". Every morning, it would "), Blank("verb"),
				Text(" through the clouds while "), Blank("whoosh"),
				Text(" rushed past its wings. The end."),
			},
		},
		{
			ID:    "field-trip",
			Title: "The Field Trip",
			Segments: []Segment{
				{ID: "adverb", Label: "adverb", Hint: "e.g., sneakily"},
				{ID: "noun", Label: "noun", Hint: "e.g., trombone"},
				{ID: "verb", Label: "verb", Hint: "e.g., wiggle"},
				{ID: "exclamation", Label: "exclamation", Hint: "e.g., holy guacamole"},
				{ID: "adjective", Label: "adjective", Hint: "e.g., sticky"},
			},
			Pieces: []Piece{
				Text("Our class field trip to see the "), PromptWord(),
				Text(" went "), Blank("adverb"),
				Text(". First, Ms. Pickle tripped over a "), Blank("noun"),
				Text(". Then the "), PromptWord(),
				Text(" started to "), Blank("verb"),
				Text(" and everyone screamed \""), Blank("exclamation"),
				Text("!\" We all went home with "), Blank("adjective"),
				Text(" souvenirs."),
			},
		},
		{
			ID:    "cooking-show",
			Title: "Cooking Hour",
			Segments: []Segment{
				{ID: "plural-noun", Label: "plural noun", Hint: "e.g., socks"},
				{ID: "noun", Label: "noun", Hint: "e.g., glitter"},
				{ID: "adjective", Label: "adjective", Hint: "e.g., haunted"},
				{ID: "verb", Label: "verb", Hint: "e.g., sing"},
				{ID: "relative", Label: "a relative", Hint: "e.g., great-aunt"},
			},
			Pieces: []Piece{
				Text("Welcome back to Cooking with "), PromptWord(),
				Text("! Today's recipe needs three cups of "), Blank("plural-noun"),
				Text(", a pinch of "), Blank("noun"),
				Text(" and one very "), Blank("adjective"),
				Text(" spoon. Stir until it starts to "), Blank("verb"),
				Text(", then serve it to your "), Blank("relative"),
				Text("."),
			},
		},
		{
			ID:    "breaking-news",
			Title: "Breaking News",
			Segments: []Segment{
				{ID: "verb-ing", Label: "verb ending in -ing", Hint: "e.g., juggling"},
				{ID: "place", Label: "place", Hint: "e.g., the dentist"},
				{ID: "adjective", Label: "adjective", Hint: "e.g., fluffy"},
				{ID: "food", Label: "food", Hint: "e.g., pickles"},
				{ID: "verb", Label: "verb", Hint: "e.g., hop"},
			},
			Pieces: []Piece{
				Text("Breaking news: a giant "), PromptWord(),
				Text(" has been spotted "), Blank("verb-ing"),
				Text(" near "), Blank("place"),
				Text(". Witnesses describe it as "), Blank("adjective"),
				Text(" and smelling faintly of "), Blank("food"),
				Text(". Authorities advise everyone to stay calm and "), Blank("verb"),
				Text("."),
			},
		},
	}
}
