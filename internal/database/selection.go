package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// UpsertSelection records the human lyric ids shown to a session. A second
// call for the same session overwrites the first.
func (db *DB) UpsertSelection(ctx context.Context, sessionID string, ids []int64) error {
	if len(ids) != lyrics.SelectionSize {
		return &lyrics.InvalidSelectionSizeError{Got: len(ids)}
	}
	_, err := db.exec(ctx,
		`INSERT INTO session_real_sega_chosen (session_id, sid1, sid2, sid3, sid4, sid5, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			sid1 = excluded.sid1, sid2 = excluded.sid2, sid3 = excluded.sid3,
			sid4 = excluded.sid4, sid5 = excluded.sid5, updated_at = excluded.updated_at`,
		sessionID, ids[0], ids[1], ids[2], ids[3], ids[4], timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting selection: %w", err)
	}
	return nil
}

// GetSelection returns the recorded selection for a session, or nil.
func (db *DB) GetSelection(ctx context.Context, sessionID string) (*Selection, error) {
	s := Selection{SessionID: sessionID, IDs: make([]int64, lyrics.SelectionSize)}
	err := db.queryRow(ctx,
		`SELECT sid1, sid2, sid3, sid4, sid5, updated_at
		FROM session_real_sega_chosen WHERE session_id = ?`, sessionID,
	).Scan(&s.IDs[0], &s.IDs[1], &s.IDs[2], &s.IDs[3], &s.IDs[4], &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	return &s, nil
}
