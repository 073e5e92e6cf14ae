package database

import (
	"context"
	"fmt"
	"time"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// InsertAILyrics stores generated rows in one transaction. Rows whose
// (session, genre) already exists are skipped. Returns the number inserted.
func (db *DB) InsertAILyrics(ctx context.Context, rows []lyrics.AILyric) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(
		`INSERT INTO session_ai_lyrics (ai_id, session_id, genre, lyrics, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, genre) DO NOTHING`,
	))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := time.Now()
	for i, r := range rows {
		created := r.CreatedAt
		if created == "" {
			// Keep insertion order visible to RecentAILyrics.
			created = timestamp(now.Add(time.Duration(i) * time.Microsecond))
		}
		res, err := stmt.ExecContext(ctx, r.ID, r.SessionID, r.Genre, r.Text, created)
		if err != nil {
			return 0, fmt.Errorf("inserting AI lyric %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// SessionAILyrics returns a session's pool rows in insertion order.
func (db *DB) SessionAILyrics(ctx context.Context, sessionID string) ([]lyrics.AILyric, error) {
	rows, err := db.query(ctx,
		`SELECT ai_id, session_id, genre, lyrics, created_at
		FROM session_ai_lyrics WHERE session_id = ? ORDER BY created_at, ai_id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session AI lyrics: %w", err)
	}
	defer rows.Close()
	return scanAILyrics(rows)
}

// RecentAILyrics returns the newest pool rows across all sessions.
func (db *DB) RecentAILyrics(ctx context.Context, limit int) ([]lyrics.AILyric, error) {
	rows, err := db.query(ctx,
		`SELECT ai_id, session_id, genre, lyrics, created_at
		FROM session_ai_lyrics ORDER BY created_at DESC, ai_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent AI lyrics: %w", err)
	}
	defer rows.Close()
	return scanAILyrics(rows)
}

// CountSessionAILyrics returns how many pool rows a session has.
func (db *DB) CountSessionAILyrics(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := db.queryRow(ctx, "SELECT COUNT(*) FROM session_ai_lyrics WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting session AI lyrics: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAILyrics(rows rowScanner) ([]lyrics.AILyric, error) {
	var result []lyrics.AILyric
	for rows.Next() {
		var a lyrics.AILyric
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Genre, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning AI lyric: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
