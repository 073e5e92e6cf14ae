// Package mixer builds the list of lyrics shown to a survey participant:
// five human lyrics picked for the participant, five generated ones, shuffled
// together and with the human picks recorded.
package mixer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// Options configures a Mixer.
type Options struct {
	Weights  Weights
	WarmPool bool
	// Rand drives jitter, pool exclusion and the shuffle. Must be safe for
	// concurrent use; see NewLockedRand.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Mixer combines human and generated lyrics for one session at a time.
type Mixer struct {
	selector *Selector
	fetcher  *Fetcher
	recorder *Recorder
	rng      *rand.Rand
	logger   *slog.Logger
}

// New creates a mixer over the given stores.
func New(corpus Corpus, pool Pool, store SelectionStore, opts Options) *Mixer {
	rng := opts.Rand
	if rng == nil {
		rng = NewRand()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mixer{
		selector: NewSelector(corpus, opts.Weights, rng),
		fetcher:  NewFetcher(pool, rng, logger, opts.WarmPool),
		recorder: NewRecorder(store),
		rng:      rng,
		logger:   logger,
	}
}

// Fetcher exposes the AI side for callers that only need generated lyrics.
func (m *Mixer) Fetcher() *Fetcher {
	return m.fetcher
}

// Mix returns the shuffled display list for a session. With a full AI set
// the result holds ten items; without one it falls back to the five human
// items alone. The human selection is recorded in both cases, and the
// result is only returned once that write has succeeded.
func (m *Mixer) Mix(ctx context.Context, sessionID string, prefs lyrics.Preferences) (*lyrics.MixResult, error) {
	var (
		aiItems  []lyrics.Item
		aiSource string
		corpus   []lyrics.HumanLyric
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aiItems, aiSource, err = m.fetcher.FetchOrWarm(gctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		corpus, err = m.selector.corpus.HumanLyrics(gctx)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if n := len(aiItems); n > 0 && n < lyrics.SelectionSize {
		m.logger.Warn("incomplete AI set, using human lyrics only", "session_id", sessionID, "count", n)
		aiItems = nil
	}
	if len(aiItems) == 0 {
		aiSource = ""
	}

	avoid := make([]string, len(aiItems))
	for i, it := range aiItems {
		avoid[i] = it.Genre
	}

	selected, err := m.selector.Select(corpus, prefs, avoid)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(selected))
	items := make([]lyrics.Item, 0, len(selected)+len(aiItems))
	for i, c := range selected {
		ids[i] = c.ID
		items = append(items, lyrics.HumanItem(c.HumanLyric))
	}
	items = append(items, aiItems...)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.recorder.RecordSelectedHumanIDs(gctx, sessionID, ids)
	})
	g.Go(func() error {
		m.shuffle(items)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range items {
		items[i].DisplayIndex = i + 1
	}

	result := &lyrics.MixResult{
		SessionID:         sessionID,
		Items:             items,
		HumanCount:        len(selected),
		AICount:           len(aiItems),
		TotalCount:        len(items),
		SelectedHumanIDs:  ids,
		FallbackMode:      len(aiItems) == 0,
		AISource:          aiSource,
		GenreDistribution: lyrics.GenreDistribution(items),
	}

	m.logger.Info("mixed lyrics",
		"session_id", sessionID,
		"human", result.HumanCount,
		"ai", result.AICount,
		"fallback", result.FallbackMode,
		"selected", formatIDs(ids),
	)
	return result, nil
}

// shuffle is an unbiased Fisher-Yates shuffle.
func (m *Mixer) shuffle(items []lyrics.Item) {
	m.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
