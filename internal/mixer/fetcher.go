package mixer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// legacyPoolSize is the row count of the older generation strategy that
// produced one extra genre to be excluded per participant.
const legacyPoolSize = lyrics.SelectionSize + 1

// Pool reads generated lyrics.
type Pool interface {
	SessionAILyrics(ctx context.Context, sessionID string) ([]lyrics.AILyric, error)
	RecentAILyrics(ctx context.Context, limit int) ([]lyrics.AILyric, error)
}

// Fetcher loads the AI side of a mix.
type Fetcher struct {
	pool     Pool
	rng      *rand.Rand
	logger   *slog.Logger
	warmPool bool
}

// NewFetcher creates a fetcher. When warmPool is set, sessions without their
// own rows borrow the most recent rows generated for other sessions.
func NewFetcher(pool Pool, rng *rand.Rand, logger *slog.Logger, warmPool bool) *Fetcher {
	return &Fetcher{pool: pool, rng: rng, logger: logger, warmPool: warmPool}
}

// FetchAILyrics returns at most five items for the session. Six rows lose
// one at random; other unexpected counts are logged and truncated.
func (f *Fetcher) FetchAILyrics(ctx context.Context, sessionID string) ([]lyrics.Item, error) {
	rows, err := f.pool.SessionAILyrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetching AI lyrics: %w", err)
	}

	switch n := len(rows); {
	case n == 0:
		return nil, nil
	case n == lyrics.SelectionSize:
	case n == legacyPoolSize:
		drop := f.rng.IntN(n)
		f.logger.Debug("excluding genre from legacy pool", "session_id", sessionID, "genre", rows[drop].Genre)
		rows = append(rows[:drop:drop], rows[drop+1:]...)
	default:
		f.logger.Warn("unexpected AI pool size", "session_id", sessionID, "count", n)
		if n > lyrics.SelectionSize {
			rows = rows[:lyrics.SelectionSize]
		}
	}

	items := make([]lyrics.Item, len(rows))
	for i, r := range rows {
		items[i] = lyrics.AIItem(r, lyrics.SourceSession)
	}
	return items, nil
}

// FetchOrWarm is FetchAILyrics with the warm pool applied: an empty session
// is served entirely from recent rows, a short one is topped up with genres
// it does not already have. The result may still hold fewer than five items.
func (f *Fetcher) FetchOrWarm(ctx context.Context, sessionID string) ([]lyrics.Item, string, error) {
	items, err := f.FetchAILyrics(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if len(items) >= lyrics.SelectionSize || !f.warmPool {
		return items, lyrics.SourceSession, nil
	}

	// Over-fetch so one-per-genre still has enough rows to choose from.
	recent, err := f.pool.RecentAILyrics(ctx, lyrics.SelectionSize*len(lyrics.Genres))
	if err != nil {
		return nil, "", fmt.Errorf("fetching warm pool: %w", err)
	}

	have := make(map[string]bool, lyrics.SelectionSize)
	for _, it := range items {
		have[strings.ToLower(it.Genre)] = true
	}
	source := lyrics.SourceSession
	if len(items) == 0 {
		source = lyrics.SourceWarmPool
	}
	for _, r := range recent {
		if len(items) == lyrics.SelectionSize {
			break
		}
		g := strings.ToLower(r.Genre)
		if r.SessionID == sessionID || have[g] {
			continue
		}
		have[g] = true
		items = append(items, lyrics.AIItem(r, lyrics.SourceWarmPool))
	}

	if len(items) > 0 {
		f.logger.Info("served AI lyrics from warm pool", "session_id", sessionID, "count", len(items))
	}
	return items, source, nil
}

// WaitForSession polls until the session has a full set of generated rows,
// returning ErrGenerationTimeout after the last attempt.
func (f *Fetcher) WaitForSession(ctx context.Context, sessionID string, interval time.Duration, attempts int) ([]lyrics.Item, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		items, err := f.FetchAILyrics(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(items) >= lyrics.SelectionSize {
			return items, nil
		}
		if attempt >= attempts {
			return nil, lyrics.ErrGenerationTimeout
		}

		f.logger.Debug("waiting for generated lyrics", "session_id", sessionID, "attempt", attempt, "have", len(items))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
