package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertSession stores a participant's preferences. Zero values are stored
// as NULL. The opinion column is left untouched.
func (db *DB) UpsertSession(ctx context.Context, sessionID string, age, familiarity, sentiment int) error {
	now := timestamp(time.Now())
	_, err := db.exec(ctx,
		`INSERT INTO sessions (session_id, participant_age, sega_familiarity, ai_sentiment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			participant_age = excluded.participant_age,
			sega_familiarity = excluded.sega_familiarity,
			ai_sentiment = excluded.ai_sentiment,
			updated_at = excluded.updated_at`,
		sessionID, nullInt(age), nullInt(familiarity), nullInt(sentiment), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

// UpdateOpinion stores the free-text opinion, creating the session row if
// needed.
func (db *DB) UpdateOpinion(ctx context.Context, sessionID, opinion string) error {
	now := timestamp(time.Now())
	_, err := db.exec(ctx,
		`INSERT INTO sessions (session_id, opinion, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			opinion = excluded.opinion, updated_at = excluded.updated_at`,
		sessionID, opinion, now, now,
	)
	if err != nil {
		return fmt.Errorf("updating opinion: %w", err)
	}
	return nil
}

// GetSession returns a session by id, or nil if not found.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	var age, fam, sent sql.NullInt64
	err := db.queryRow(ctx,
		`SELECT session_id, participant_age, sega_familiarity, ai_sentiment, opinion, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&s.SessionID, &age, &fam, &sent, &s.Opinion, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	s.ParticipantAge = intPtr(age)
	s.SegaFamiliarity = intPtr(fam)
	s.AISentiment = intPtr(sent)
	return &s, nil
}

// SaveVotes replaces a session's votes.
func (db *DB) SaveVotes(ctx context.Context, sessionID string, votes []Vote) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin votes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind("DELETE FROM session_votes WHERE session_id = ?"), sessionID); err != nil {
		return fmt.Errorf("clearing votes: %w", err)
	}

	now := timestamp(time.Now())
	for _, v := range votes {
		if _, err := tx.ExecContext(ctx, db.rebind(
			`INSERT INTO session_votes (session_id, lyric_id, genre, is_ai, vote, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (session_id, lyric_id) DO UPDATE SET vote = excluded.vote`),
			sessionID, v.LyricID, v.Genre, v.IsAI, v.Vote, now,
		); err != nil {
			return fmt.Errorf("inserting vote for %s: %w", v.LyricID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit votes: %w", err)
	}
	return nil
}

// GetVotes returns a session's votes ordered by genre.
func (db *DB) GetVotes(ctx context.Context, sessionID string) ([]Vote, error) {
	rows, err := db.query(ctx,
		`SELECT lyric_id, genre, is_ai, vote FROM session_votes
		WHERE session_id = ? ORDER BY genre, is_ai`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying votes: %w", err)
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.LyricID, &v.Genre, &v.IsAI, &v.Vote); err != nil {
			return nil, fmt.Errorf("scanning vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// LockIP records that an address has voted. Returns false if it was
// already locked.
func (db *DB) LockIP(ctx context.Context, ip, sessionID string) (bool, error) {
	res, err := db.exec(ctx,
		`INSERT INTO session_trackers (ip_address, session_id, locked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (ip_address) DO NOTHING`,
		ip, sessionID, timestamp(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("locking ip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsIPLocked reports whether an address has already voted.
func (db *DB) IsIPLocked(ctx context.Context, ip string) (bool, error) {
	var n int
	if err := db.queryRow(ctx, "SELECT COUNT(*) FROM session_trackers WHERE ip_address = ?", ip).Scan(&n); err != nil {
		return false, fmt.Errorf("checking ip lock: %w", err)
	}
	return n > 0, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
