package lyrics

import "strings"

// Genres is the default set of genres the generator draws from.
var Genres = []string{
	"politics",
	"engager",
	"romance",
	"celebration",
	"tipik",
	"seggae",
	"hotel",
	"modern",
}

const defaultColor = "blue"

// colorTable is checked in order; the first substring match wins.
var colorTable = []struct {
	match string
	color string
}{
	{"romance", "pink"},
	{"politic", "blue"},
	{"celebration", "purple"},
	{"tipik", "yellow"},
	{"engager", "gray"},
	{"seggae", "mint"},
}

// ColorTag returns the display color for a genre. Human and AI items of the
// same genre get the same color.
func ColorTag(genre string) string {
	g := strings.ToLower(genre)
	for _, c := range colorTable {
		if strings.Contains(g, c.match) {
			return c.color
		}
	}
	return defaultColor
}

// AnimationTag returns the animation asset key for a genre.
func AnimationTag(genre string) string {
	return strings.ToLower(strings.TrimSpace(genre))
}

// IsKnownGenre reports whether genre is one of Genres.
func IsKnownGenre(genre string) bool {
	g := strings.ToLower(genre)
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the lower-cased genre contains any of the
// given keys.
func MatchesAny(genre string, keys []string) bool {
	g := strings.ToLower(genre)
	for _, k := range keys {
		if k != "" && strings.Contains(g, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
