package lyrics

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when the human corpus has no rows.
	ErrEmptyCorpus = errors.New("human lyric corpus is empty")

	// ErrInvalidSelectionSize is matched by InvalidSelectionSizeError.
	ErrInvalidSelectionSize = errors.New("invalid selection size")

	// ErrGenerationTimeout is returned when a session's AI lyrics did not
	// become ready in time.
	ErrGenerationTimeout = errors.New("timed out waiting for generated lyrics")
)

// InvalidSelectionSizeError reports a selection that does not hold exactly
// SelectionSize ids.
type InvalidSelectionSizeError struct {
	Got int
}

func (e *InvalidSelectionSizeError) Error() string {
	return fmt.Sprintf("invalid selection size: expected %d ids, got %d", SelectionSize, e.Got)
}

func (e *InvalidSelectionSizeError) Is(target error) bool {
	return target == ErrInvalidSelectionSize
}
