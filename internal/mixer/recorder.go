package mixer

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// SelectionStore persists which human lyrics a session was shown.
type SelectionStore interface {
	UpsertSelection(ctx context.Context, sessionID string, ids []int64) error
}

// Recorder writes selections.
type Recorder struct {
	store SelectionStore
}

func NewRecorder(store SelectionStore) *Recorder {
	return &Recorder{store: store}
}

// RecordSelectedHumanIDs stores exactly five ids for the session,
// overwriting any earlier record.
func (r *Recorder) RecordSelectedHumanIDs(ctx context.Context, sessionID string, ids []int64) error {
	if len(ids) != lyrics.SelectionSize {
		return &lyrics.InvalidSelectionSizeError{Got: len(ids)}
	}
	if err := r.store.UpsertSelection(ctx, sessionID, ids); err != nil {
		return fmt.Errorf("recording selection for %s: %w", sessionID, err)
	}
	return nil
}
