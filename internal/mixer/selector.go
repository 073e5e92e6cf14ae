package mixer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// Corpus reads the human-written lyric corpus.
type Corpus interface {
	HumanLyrics(ctx context.Context) ([]lyrics.HumanLyric, error)
}

// AgeBracket grants AgeBracketBonus to Genres when the participant's age is
// within [Min, Max]. Max of 0 means no upper bound.
type AgeBracket struct {
	Min    int
	Max    int
	Genres []string
}

func (b AgeBracket) contains(age int) bool {
	if age < b.Min {
		return false
	}
	return b.Max == 0 || age <= b.Max
}

// Weights is the scoring table. Bonuses from every matching rule are summed.
type Weights struct {
	AgeProximity          float64
	PopularityFactor      float64
	CommentsDensityFactor float64
	FamiliarityBonus      float64
	SentimentBonus        float64
	AgeBracketBonus       float64
	Jitter                float64
	GenreCap              int

	TraditionalGenres  []string
	ModernGenres       []string
	ExperimentalGenres []string
	AgeBrackets        []AgeBracket
}

// DefaultWeights returns the standard scoring table.
func DefaultWeights() Weights {
	return Weights{
		AgeProximity:          10,
		PopularityFactor:      2,
		CommentsDensityFactor: 1.5,
		FamiliarityBonus:      15,
		SentimentBonus:        10,
		AgeBracketBonus:       12,
		Jitter:                5,
		GenreCap:              3,
		TraditionalGenres:     []string{"tipik", "traditional"},
		ModernGenres:          []string{"engager", "celebration", "modern"},
		ExperimentalGenres:    []string{"engager", "modern"},
		AgeBrackets: []AgeBracket{
			{Min: 18, Max: 30, Genres: []string{"modern", "engager"}},
			{Min: 40, Max: 59, Genres: []string{"hotel"}},
			{Min: 60, Genres: []string{"tipik"}},
		},
	}
}

// Score returns the deterministic part of a row's score.
func (w Weights) Score(h lyrics.HumanLyric, p lyrics.Preferences) float64 {
	var score float64

	if h.Age != nil && p.Age > 0 {
		diff := math.Abs(float64(*h.Age - p.Age))
		score += math.Max(0, w.AgeProximity-diff)
	}
	if h.Popularity != nil {
		score += *h.Popularity * w.PopularityFactor
	}
	if h.CommentsDensity != nil {
		score += *h.CommentsDensity * w.CommentsDensityFactor
	}

	switch {
	case p.SegaFamiliarity >= 4 && lyrics.MatchesAny(h.Genre, w.TraditionalGenres):
		score += w.FamiliarityBonus
	case p.SegaFamiliarity > 0 && p.SegaFamiliarity <= 2 && lyrics.MatchesAny(h.Genre, w.ModernGenres):
		score += w.FamiliarityBonus
	}

	switch {
	case p.AISentiment >= 4 && lyrics.MatchesAny(h.Genre, w.ExperimentalGenres):
		score += w.SentimentBonus
	case p.AISentiment > 0 && p.AISentiment <= 2 && lyrics.MatchesAny(h.Genre, w.TraditionalGenres):
		score += w.SentimentBonus
	}

	if p.Age > 0 {
		for _, b := range w.AgeBrackets {
			if b.contains(p.Age) && lyrics.MatchesAny(h.Genre, b.Genres) {
				score += w.AgeBracketBonus
			}
		}
	}

	return score
}

// ScoredCandidate is a corpus row with its score for one selection.
type ScoredCandidate struct {
	lyrics.HumanLyric
	Score float64
}

// Selector picks human lyrics for a participant.
type Selector struct {
	corpus  Corpus
	weights Weights
	rng     *rand.Rand
}

// NewSelector creates a selector over the given corpus.
func NewSelector(corpus Corpus, weights Weights, rng *rand.Rand) *Selector {
	if weights.GenreCap <= 0 {
		weights.GenreCap = 3
	}
	return &Selector{corpus: corpus, weights: weights, rng: rng}
}

// SelectHumanLyrics loads the corpus and returns up to five rows in
// selection order.
func (s *Selector) SelectHumanLyrics(ctx context.Context, prefs lyrics.Preferences, avoidGenres []string) ([]ScoredCandidate, error) {
	rows, err := s.corpus.HumanLyrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	return s.Select(rows, prefs, avoidGenres)
}

// Select scores rows and picks up to five of them, at most GenreCap per
// genre counting avoidGenres. When the cap leaves slots empty, a second pass
// fills them from the remaining rows by score.
func (s *Selector) Select(rows []lyrics.HumanLyric, prefs lyrics.Preferences, avoidGenres []string) ([]ScoredCandidate, error) {
	if len(rows) == 0 {
		return nil, lyrics.ErrEmptyCorpus
	}

	scored := make([]ScoredCandidate, len(rows))
	for i, h := range rows {
		scored[i] = ScoredCandidate{
			HumanLyric: h,
			Score:      s.weights.Score(h, prefs) + s.rng.Float64()*s.weights.Jitter,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	counts := make(map[string]int)
	for _, g := range avoidGenres {
		counts[strings.ToLower(g)]++
	}

	selected := make([]ScoredCandidate, 0, lyrics.SelectionSize)
	taken := make(map[int]bool, lyrics.SelectionSize)
	for i, c := range scored {
		if len(selected) == lyrics.SelectionSize {
			break
		}
		g := strings.ToLower(c.Genre)
		if counts[g] >= s.weights.GenreCap {
			continue
		}
		counts[g]++
		selected = append(selected, c)
		taken[i] = true
	}

	for i, c := range scored {
		if len(selected) == lyrics.SelectionSize {
			break
		}
		if taken[i] {
			continue
		}
		selected = append(selected, c)
		taken[i] = true
	}

	return selected, nil
}
