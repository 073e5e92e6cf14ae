// Package lyrics holds the survey's domain types: corpus rows, generated
// pool rows, the display items shown to participants, and the genre tables
// that drive tagging.
package lyrics

import (
	"strconv"
	"strings"
	"time"
)

// Source labels for Item.Source.
const (
	SourceCorpus   = "corpus"
	SourceSession  = "session"
	SourceWarmPool = "warm_pool"
)

// SelectionSize is the number of items contributed by each side of a mix.
const SelectionSize = 5

// HumanLyric is one row of the human-written corpus.
type HumanLyric struct {
	ID              int64
	Genre           string
	Text            string
	Age             *int
	Popularity      *float64
	CommentsDensity *float64
	Animation       *string
	SourceURL       *string
	CreatedAt       string
}

// AILyric is one generated row in a session's pool.
type AILyric struct {
	ID        string
	SessionID string
	Genre     string
	Text      string
	CreatedAt string
}

// Item is a single entry in the list shown to a participant. Human and AI
// items carry the same fields so the display cannot tell them apart.
type Item struct {
	ID           string `json:"id" yaml:"id"`
	Genre        string `json:"genre" yaml:"genre"`
	Text         string `json:"lyrics" yaml:"lyrics"`
	IsAI         bool   `json:"is_ai" yaml:"is_ai"`
	Source       string `json:"source" yaml:"source"`
	ColorTag     string `json:"color_code" yaml:"color_code"`
	AnimationTag string `json:"lottie" yaml:"lottie"`
	DisplayIndex int    `json:"display_index,omitempty" yaml:"display_index,omitempty"`
}

// Preferences are the participant's answers used for scoring. Zero means
// the answer was not given.
type Preferences struct {
	Age             int `json:"age" validate:"gte=0,lte=120"`
	SegaFamiliarity int `json:"sega_familiarity" validate:"gte=0,lte=5"`
	AISentiment     int `json:"ai_sentiment" validate:"gte=0,lte=5"`
}

// MixResult is the outcome of a single mix.
type MixResult struct {
	SessionID         string         `json:"session_id"`
	Items             []Item         `json:"items"`
	HumanCount        int            `json:"human_count"`
	AICount           int            `json:"ai_count"`
	TotalCount        int            `json:"total_count"`
	SelectedHumanIDs  []int64        `json:"selected_human_ids"`
	FallbackMode      bool           `json:"fallback_mode"`
	AISource          string         `json:"ai_source,omitempty"`
	GenreDistribution map[string]int `json:"genre_distribution"`
}

// HumanItem converts a corpus row into a display item.
func HumanItem(h HumanLyric) Item {
	anim := AnimationTag(h.Genre)
	if h.Animation != nil && *h.Animation != "" {
		anim = *h.Animation
	}
	return Item{
		ID:           strconv.FormatInt(h.ID, 10),
		Genre:        h.Genre,
		Text:         h.Text,
		IsAI:         false,
		Source:       SourceCorpus,
		ColorTag:     ColorTag(h.Genre),
		AnimationTag: anim,
	}
}

// AIItem converts a pool row into a display item.
func AIItem(a AILyric, source string) Item {
	return Item{
		ID:           a.ID,
		Genre:        a.Genre,
		Text:         a.Text,
		IsAI:         true,
		Source:       source,
		ColorTag:     ColorTag(a.Genre),
		AnimationTag: AnimationTag(a.Genre),
	}
}

// GenreDistribution counts items per lower-cased genre.
func GenreDistribution(items []Item) map[string]int {
	dist := make(map[string]int, len(items))
	for _, it := range items {
		dist[strings.ToLower(it.Genre)]++
	}
	return dist
}

var sentimentScale = map[string]int{
	"hate":    1,
	"no":      2,
	"neutral": 3,
	"ok":      4,
	"pro":     5,
}

// ParseSentiment maps an AI-sentiment answer to the 1..5 scale. Numeric
// strings in range are accepted as-is; anything else returns 0.
func ParseSentiment(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := sentimentScale[s]; ok {
		return v
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 5 {
		return n
	}
	return 0
}

// AgeFromBirthday returns the whole years between birthday and now.
func AgeFromBirthday(birthday, now time.Time) int {
	age := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() ||
		(now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
