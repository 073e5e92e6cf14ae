package database

import (
	"context"
	"database/sql"
	"fmt"
)

// GetStats returns row counts across the survey tables.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM human_lyrics", &s.HumanLyrics},
		{"SELECT COUNT(*) FROM session_ai_lyrics", &s.AILyrics},
		{"SELECT COUNT(DISTINCT session_id) FROM session_ai_lyrics", &s.AISessions},
		{"SELECT COUNT(*) FROM sessions", &s.Sessions},
		{"SELECT COUNT(*) FROM session_real_sega_chosen", &s.Selections},
		{"SELECT COUNT(*) FROM session_votes", &s.Votes},
		{"SELECT COUNT(*) FROM session_trackers", &s.LockedIPs},
	}
	for _, c := range counts {
		if err := db.queryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting (%s): %w", c.query, err)
		}
	}

	var last sql.NullString
	if err := db.queryRow(ctx, "SELECT MAX(created_at) FROM session_ai_lyrics").Scan(&last); err != nil {
		return nil, fmt.Errorf("reading last generation: %w", err)
	}
	s.LastGenerated = last.String
	return s, nil
}
