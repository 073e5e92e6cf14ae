package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// InsertHumanLyric inserts a corpus row. Returns the new sid, or 0 if a row
// with the same source URL already exists.
func (db *DB) InsertHumanLyric(ctx context.Context, h lyrics.HumanLyric) (int64, error) {
	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO human_lyrics (genre, lyrics, age, popularity, comments_density, lottie, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_url) DO NOTHING
		RETURNING sid`,
		h.Genre, h.Text, h.Age, h.Popularity, h.CommentsDensity, h.Animation, h.SourceURL, timestamp(time.Now()),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inserting human lyric: %w", err)
	}
	return id, nil
}

// HumanLyrics returns the whole corpus ordered by sid.
func (db *DB) HumanLyrics(ctx context.Context) ([]lyrics.HumanLyric, error) {
	rows, err := db.query(ctx,
		`SELECT sid, genre, lyrics, age, popularity, comments_density, lottie, source_url, created_at
		FROM human_lyrics ORDER BY sid`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying human lyrics: %w", err)
	}
	defer rows.Close()

	var result []lyrics.HumanLyric
	for rows.Next() {
		var h lyrics.HumanLyric
		var age sql.NullInt64
		if err := rows.Scan(&h.ID, &h.Genre, &h.Text, &age, &h.Popularity, &h.CommentsDensity,
			&h.Animation, &h.SourceURL, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning human lyric: %w", err)
		}
		if age.Valid {
			a := int(age.Int64)
			h.Age = &a
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// HumanLyricExists reports whether a row with the given source URL exists.
func (db *DB) HumanLyricExists(ctx context.Context, sourceURL string) (bool, error) {
	var n int
	err := db.queryRow(ctx, "SELECT COUNT(*) FROM human_lyrics WHERE source_url = ?", sourceURL).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking human lyric: %w", err)
	}
	return n > 0, nil
}
