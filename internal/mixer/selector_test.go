package mixer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

func TestScoreComponents(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name  string
		row   lyrics.HumanLyric
		prefs lyrics.Preferences
		want  float64
	}{
		{
			name:  "age proximity",
			row:   lyrics.HumanLyric{Genre: "romance", Age: intp(33)},
			prefs: lyrics.Preferences{Age: 35},
			want:  8,
		},
		{
			name:  "age far apart",
			row:   lyrics.HumanLyric{Genre: "romance", Age: intp(70)},
			prefs: lyrics.Preferences{Age: 35},
			want:  0,
		},
		{
			name:  "missing participant age",
			row:   lyrics.HumanLyric{Genre: "romance", Age: intp(35)},
			prefs: lyrics.Preferences{},
			want:  0,
		},
		{
			name:  "popularity and comments",
			row:   lyrics.HumanLyric{Genre: "romance", Popularity: floatp(3), CommentsDensity: floatp(2)},
			prefs: lyrics.Preferences{},
			want:  9,
		},
		{
			name:  "familiar listener likes tipik",
			row:   lyrics.HumanLyric{Genre: "Tipik"},
			prefs: lyrics.Preferences{SegaFamiliarity: 5},
			want:  15,
		},
		{
			name:  "new listener likes celebration",
			row:   lyrics.HumanLyric{Genre: "celebration"},
			prefs: lyrics.Preferences{SegaFamiliarity: 1},
			want:  15,
		},
		{
			name:  "unknown familiarity gets no bonus",
			row:   lyrics.HumanLyric{Genre: "celebration"},
			prefs: lyrics.Preferences{},
			want:  0,
		},
		{
			name:  "ai enthusiast likes engager",
			row:   lyrics.HumanLyric{Genre: "engager"},
			prefs: lyrics.Preferences{AISentiment: 5, SegaFamiliarity: 3},
			want:  10,
		},
		{
			name:  "ai skeptic likes tipik",
			row:   lyrics.HumanLyric{Genre: "tipik"},
			prefs: lyrics.Preferences{AISentiment: 1, SegaFamiliarity: 3},
			want:  10,
		},
		{
			name:  "young bracket",
			row:   lyrics.HumanLyric{Genre: "modern"},
			prefs: lyrics.Preferences{Age: 25, SegaFamiliarity: 3, AISentiment: 3},
			want:  12,
		},
		{
			name:  "hotel bracket upper edge",
			row:   lyrics.HumanLyric{Genre: "hotel"},
			prefs: lyrics.Preferences{Age: 59},
			want:  12,
		},
		{
			name:  "sixty belongs to tipik only",
			row:   lyrics.HumanLyric{Genre: "hotel"},
			prefs: lyrics.Preferences{Age: 60},
			want:  0,
		},
		{
			name:  "bonuses add up",
			row:   lyrics.HumanLyric{Genre: "tipik", Age: intp(65)},
			prefs: lyrics.Preferences{Age: 65, SegaFamiliarity: 5, AISentiment: 1},
			want:  10 + 15 + 10 + 12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, w.Score(tt.row, tt.prefs), 1e-9)
		})
	}
}

func TestSelectReturnsFiveUnique(t *testing.T) {
	rows := corpusOf("tipik", "tipik", "romance", "hotel", "seggae", "politics", "modern", "engager", "celebration")
	prefsList := []lyrics.Preferences{
		{},
		{Age: 20, SegaFamiliarity: 1, AISentiment: 5},
		{Age: 70, SegaFamiliarity: 5, AISentiment: 1},
		{Age: 45, SegaFamiliarity: 3, AISentiment: 3},
	}
	for seed := uint64(0); seed < 20; seed++ {
		s := NewSelector(nil, DefaultWeights(), NewLockedRand(seed))
		for _, p := range prefsList {
			got, err := s.Select(rows, p, nil)
			require.NoError(t, err)
			require.Len(t, got, 5)
			ids := map[int64]bool{}
			for _, c := range got {
				assert.False(t, ids[c.ID], "duplicate id %d", c.ID)
				ids[c.ID] = true
			}
		}
	}
}

func TestSelectGenreCap(t *testing.T) {
	// Six tipik rows all outscore the rest for a familiar skeptic.
	rows := corpusOf("tipik", "tipik", "tipik", "tipik", "tipik", "tipik", "romance", "hotel")
	s := NewSelector(nil, DefaultWeights(), NewLockedRand(1))

	got, err := s.Select(rows, lyrics.Preferences{SegaFamiliarity: 5, AISentiment: 1}, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)

	counts := map[string]int{}
	for _, c := range got {
		counts[c.Genre]++
	}
	assert.Equal(t, 3, counts["tipik"])
	assert.Equal(t, 1, counts["romance"])
	assert.Equal(t, 1, counts["hotel"])
}

func TestSelectAvoidGenresSeedCounter(t *testing.T) {
	rows := corpusOf("tipik", "tipik", "tipik", "romance", "hotel", "seggae", "politics")
	s := NewSelector(nil, DefaultWeights(), NewLockedRand(1))

	got, err := s.Select(rows, lyrics.Preferences{SegaFamiliarity: 5}, []string{"Tipik", "tipik"})
	require.NoError(t, err)

	tipik := 0
	for _, c := range got {
		if c.Genre == "tipik" {
			tipik++
		}
	}
	assert.Equal(t, 1, tipik, "two tipik AI lyrics leave room for one human tipik")
}

func TestSelectSecondPassFillsWhenDiversityIsLow(t *testing.T) {
	rows := corpusOf("tipik", "tipik", "tipik", "tipik", "tipik", "romance")
	s := NewSelector(nil, DefaultWeights(), NewLockedRand(1))

	got, err := s.Select(rows, lyrics.Preferences{}, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)

	counts := map[string]int{}
	for _, c := range got {
		counts[c.Genre]++
	}
	assert.Equal(t, 4, counts["tipik"])
	assert.Equal(t, 1, counts["romance"])
}

func TestSelectOrderIsByScore(t *testing.T) {
	rows := []lyrics.HumanLyric{
		{ID: 1, Genre: "romance", Popularity: floatp(1)},
		{ID: 2, Genre: "hotel", Popularity: floatp(50)},
		{ID: 3, Genre: "seggae", Popularity: floatp(20)},
		{ID: 4, Genre: "politics", Popularity: floatp(35)},
		{ID: 5, Genre: "modern", Popularity: floatp(10)},
	}
	s := NewSelector(nil, DefaultWeights(), NewLockedRand(1))
	got, err := s.Select(rows, lyrics.Preferences{}, nil)
	require.NoError(t, err)

	var ids []int64
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{2, 4, 3, 5, 1}, ids)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestSelectFavorsTipikForFamiliarSkeptic(t *testing.T) {
	rows := []lyrics.HumanLyric{
		{ID: 1, Genre: "tipik", Popularity: floatp(3)},
		{ID: 2, Genre: "tipik", Popularity: floatp(9)},
		{ID: 3, Genre: "romance", Popularity: floatp(5)},
		{ID: 4, Genre: "celebration"},
		{ID: 5, Genre: "modern"},
		{ID: 6, Genre: "hotel"},
	}
	prefs := lyrics.Preferences{Age: 45, SegaFamiliarity: 5, AISentiment: 1}

	for seed := uint64(0); seed < 50; seed++ {
		s := NewSelector(nil, DefaultWeights(), NewLockedRand(seed))
		got, err := s.Select(rows, prefs, nil)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, int64(2), got[0].ID)
		assert.Equal(t, int64(1), got[1].ID)
	}
}

func TestSelectHumanLyricsEmptyCorpus(t *testing.T) {
	store := newFakeStore()
	s := NewSelector(store, DefaultWeights(), NewLockedRand(1))
	_, err := s.SelectHumanLyrics(context.Background(), lyrics.Preferences{}, nil)
	assert.ErrorIs(t, err, lyrics.ErrEmptyCorpus)
}

func TestSelectJitterVariesTies(t *testing.T) {
	rows := corpusOf("romance", "hotel", "seggae", "politics", "modern", "engager", "celebration", "tipik")
	firsts := map[int64]bool{}
	for seed := uint64(0); seed < 40; seed++ {
		s := NewSelector(nil, DefaultWeights(), NewLockedRand(seed))
		got, err := s.Select(rows, lyrics.Preferences{}, nil)
		require.NoError(t, err)
		firsts[got[0].ID] = true
	}
	assert.Greater(t, len(firsts), 1)
}

func TestCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.AgeBrackets = []AgeBracket{{Min: 40, Max: 60, Genres: []string{"hotel"}}, {Min: 60, Genres: []string{"hotel"}}}
	// Overlapping brackets sum.
	got := w.Score(lyrics.HumanLyric{Genre: "hotel"}, lyrics.Preferences{Age: 60})
	assert.InDelta(t, 24, got, 1e-9)
}
