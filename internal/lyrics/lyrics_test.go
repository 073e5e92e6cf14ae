package lyrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorTag(t *testing.T) {
	tests := []struct {
		genre string
		want  string
	}{
		{"romance", "pink"},
		{"Politics", "blue"},
		{"celebration", "purple"},
		{"TIPIK", "yellow"},
		{"engager", "gray"},
		{"seggae", "mint"},
		{"hotel", "blue"},
		{"", "blue"},
	}
	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorTag(tt.genre))
		})
	}
}

func TestHumanAndAIItemsShareTags(t *testing.T) {
	h := HumanItem(HumanLyric{ID: 42, Genre: "Romance", Text: "x"})
	a := AIItem(AILyric{ID: "romance_abc", Genre: "Romance", Text: "y"}, SourceSession)

	assert.Equal(t, "42", h.ID)
	assert.False(t, h.IsAI)
	assert.True(t, a.IsAI)
	assert.Equal(t, h.ColorTag, a.ColorTag)
	assert.Equal(t, h.AnimationTag, a.AnimationTag)
	assert.Equal(t, "romance", h.AnimationTag)
}

func TestHumanItemAnimationOverride(t *testing.T) {
	anim := "sega_dance"
	h := HumanItem(HumanLyric{ID: 1, Genre: "tipik", Animation: &anim})
	assert.Equal(t, "sega_dance", h.AnimationTag)
}

func TestParseSentiment(t *testing.T) {
	assert.Equal(t, 1, ParseSentiment("hate"))
	assert.Equal(t, 2, ParseSentiment("No"))
	assert.Equal(t, 3, ParseSentiment(" neutral "))
	assert.Equal(t, 4, ParseSentiment("ok"))
	assert.Equal(t, 5, ParseSentiment("pro"))
	assert.Equal(t, 4, ParseSentiment("4"))
	assert.Equal(t, 0, ParseSentiment("9"))
	assert.Equal(t, 0, ParseSentiment("meh"))
}

func TestAgeFromBirthday(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, AgeFromBirthday(time.Date(1996, 6, 15, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 29, AgeFromBirthday(time.Date(1996, 6, 16, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 0, AgeFromBirthday(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), now))
}

func TestFlatRoundTrip(t *testing.T) {
	rows := []AILyric{
		{ID: "tipik_a1", Genre: "tipik", Text: "lalala"},
		{ID: "romance_b2", Genre: "romance", Text: "mo leker"},
	}
	flat := FlattenAI("s1", rows)
	assert.Equal(t, "tipik_a1", flat["tipik_ai_id"])
	assert.Equal(t, "mo leker", flat["romance_ai_sega"])

	back := ExpandFlatAI("s1", flat)
	require.Len(t, back, 2)
	assert.Equal(t, "romance", back[0].Genre)
	assert.Equal(t, "romance_b2", back[0].ID)
	assert.Equal(t, "s1", back[1].SessionID)
}

func TestExpandFlatSkipsEmpty(t *testing.T) {
	flat := map[string]string{
		"politics_ai_id":   "-",
		"politics_ai_sega": "",
		"hotel_ai_sega":    "bonzour",
	}
	rows := ExpandFlatAI("s", flat)
	require.Len(t, rows, 1)
	assert.Equal(t, "hotel_legacy", rows[0].ID)
}

func TestInvalidSelectionSizeError(t *testing.T) {
	err := fmt.Errorf("recording: %w", &InvalidSelectionSizeError{Got: 4})
	assert.True(t, errors.Is(err, ErrInvalidSelectionSize))

	var sizeErr *InvalidSelectionSizeError
	require.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, 4, sizeErr.Got)
}

func TestGenreDistribution(t *testing.T) {
	dist := GenreDistribution([]Item{{Genre: "Tipik"}, {Genre: "tipik"}, {Genre: "hotel"}})
	assert.Equal(t, map[string]int{"tipik": 2, "hotel": 1}, dist)
}
