package lyrics

import (
	"sort"
	"strings"
)

// Legacy exports store one row per session with a column pair per genre:
// <genre>_ai_id and <genre>_ai_sega.
const (
	flatIDSuffix   = "_ai_id"
	flatTextSuffix = "_ai_sega"
)

// FlattenAI renders pool rows in the legacy per-genre column layout.
func FlattenAI(sessionID string, rows []AILyric) map[string]string {
	flat := map[string]string{"session_id": sessionID}
	for _, r := range rows {
		g := strings.ToLower(r.Genre)
		flat[g+flatIDSuffix] = r.ID
		flat[g+flatTextSuffix] = r.Text
	}
	return flat
}

// ExpandFlatAI converts a legacy per-genre row into pool rows. Genres with
// an empty text column are skipped. When the id column is missing the
// genre name is used as the id prefix. Rows come back ordered by genre.
func ExpandFlatAI(sessionID string, flat map[string]string) []AILyric {
	var genres []string
	for key := range flat {
		if g, ok := strings.CutSuffix(key, flatTextSuffix); ok && g != "" {
			genres = append(genres, g)
		}
	}
	sort.Strings(genres)

	rows := make([]AILyric, 0, len(genres))
	for _, g := range genres {
		text := strings.TrimSpace(flat[g+flatTextSuffix])
		if text == "" {
			continue
		}
		id := flat[g+flatIDSuffix]
		if id == "" || id == "-" {
			id = g + "_legacy"
		}
		rows = append(rows, AILyric{
			ID:        id,
			SessionID: sessionID,
			Genre:     g,
			Text:      text,
		})
	}
	return rows
}
