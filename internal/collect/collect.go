// Package collect harvests human-written lyrics into the corpus, either
// from RSS/Atom feeds or from a YAML corpus file.
package collect

import (
	"context"
	"log/slog"
	"time"

	"github.com/TobiSchelling/segasurvey/internal/config"
	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	NewLyrics  int
	Duplicates int
	Fetched    int
	TooShort   int
	Sources    map[string]int
}

// TextFetcher retrieves the lyric text of a linked page.
type TextFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// Collector orchestrates lyric collection from feeds.
type Collector struct {
	db         *database.DB
	feedParser *FeedParser
	pages      TextFetcher
	minLength  int
	logger     *slog.Logger
}

// NewCollector creates a collector for the configured feeds.
func NewCollector(cfg *config.Config, db *database.DB, logger *slog.Logger) *Collector {
	feeds := make([]FeedConfig, len(cfg.Corpus.Feeds))
	for i, f := range cfg.Corpus.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name, Genre: f.Genre}
	}
	return &Collector{
		db:         db,
		feedParser: NewFeedParser(feeds, logger),
		pages:      NewPageFetcher(15 * time.Second),
		minLength:  cfg.Corpus.MinLength,
		logger:     logger,
	}
}

// Collect parses every feed and stores entries not yet in the corpus.
// Entries whose feed body is shorter than the minimum length are completed
// from the linked page.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	r := &Result{Sources: make(map[string]int)}

	entries := c.feedParser.ParseAll(ctx)
	r.TotalFound = len(entries)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		exists, err := c.db.HumanLyricExists(ctx, entry.URL)
		if err != nil {
			return r, err
		}
		if exists {
			r.Duplicates++
			continue
		}

		text := entry.Content
		if len(text) < c.minLength {
			fetched, err := c.pages.FetchText(ctx, entry.URL)
			if err != nil {
				c.logger.Warn("failed to fetch lyric page", "url", entry.URL, "error", err)
			} else if len(fetched) > len(text) {
				text = fetched
				r.Fetched++
			}
		}
		if text == "" || len(text) < c.minLength {
			r.TooShort++
			continue
		}

		id, err := c.db.InsertHumanLyric(ctx, lyricFromEntry(entry, text))
		if err != nil {
			return r, err
		}
		if id > 0 {
			r.NewLyrics++
			r.Sources[entry.Source]++
		} else {
			r.Duplicates++
		}
	}

	c.logger.Info("collection complete", "found", r.TotalFound, "new", r.NewLyrics, "duplicates", r.Duplicates, "too_short", r.TooShort)
	return r, nil
}

func lyricFromEntry(entry FeedEntry, text string) lyrics.HumanLyric {
	sourceURL := entry.URL
	animation := lyrics.AnimationTag(entry.Genre)
	return lyrics.HumanLyric{
		Genre:     entry.Genre,
		Text:      text,
		Animation: &animation,
		SourceURL: &sourceURL,
	}
}
