package collect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// CorpusFile is the on-disk format for hand-curated corpus rows.
type CorpusFile struct {
	Lyrics []CorpusEntry `yaml:"lyrics"`
}

// CorpusEntry is one human lyric in a corpus file.
type CorpusEntry struct {
	Genre           string   `yaml:"genre"`
	Lyrics          string   `yaml:"lyrics"`
	Age             *int     `yaml:"age,omitempty"`
	Popularity      *float64 `yaml:"popularity,omitempty"`
	CommentsDensity *float64 `yaml:"comments_density,omitempty"`
	Lottie          string   `yaml:"lottie,omitempty"`
	SourceURL       string   `yaml:"source_url,omitempty"`
}

// ImportResult counts what an import did.
type ImportResult struct {
	Imported   int
	Duplicates int
	Invalid    int
}

// LoadCorpusFile reads and parses a corpus file.
func LoadCorpusFile(path string) (*CorpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var f CorpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus file: %w", err)
	}
	return &f, nil
}

// Import stores every valid entry. Entries with an unknown genre or no text
// are counted as invalid and skipped.
func Import(ctx context.Context, db *database.DB, f *CorpusFile, logger *slog.Logger) (*ImportResult, error) {
	r := &ImportResult{}
	for i, e := range f.Lyrics {
		h, ok := e.toLyric()
		if !ok {
			logger.Warn("skipping invalid corpus entry", "index", i, "genre", e.Genre)
			r.Invalid++
			continue
		}
		id, err := db.InsertHumanLyric(ctx, h)
		if err != nil {
			return r, fmt.Errorf("entry %d: %w", i, err)
		}
		if id == 0 {
			r.Duplicates++
			continue
		}
		r.Imported++
	}
	logger.Info("corpus import complete", "imported", r.Imported, "duplicates", r.Duplicates, "invalid", r.Invalid)
	return r, nil
}

func (e CorpusEntry) toLyric() (lyrics.HumanLyric, bool) {
	genre := strings.ToLower(strings.TrimSpace(e.Genre))
	text := strings.TrimSpace(e.Lyrics)
	if text == "" || !lyrics.IsKnownGenre(genre) {
		return lyrics.HumanLyric{}, false
	}

	lottie := e.Lottie
	if lottie == "" {
		lottie = lyrics.AnimationTag(genre)
	}
	h := lyrics.HumanLyric{
		Genre:           genre,
		Text:            text,
		Age:             e.Age,
		Popularity:      e.Popularity,
		CommentsDensity: e.CommentsDensity,
		Animation:       &lottie,
	}
	if e.SourceURL != "" {
		u := e.SourceURL
		h.SourceURL = &u
	}
	return h, true
}

// ExportCorpus converts stored rows back into the file format.
func ExportCorpus(rows []lyrics.HumanLyric) *CorpusFile {
	f := &CorpusFile{Lyrics: make([]CorpusEntry, 0, len(rows))}
	for _, h := range rows {
		e := CorpusEntry{
			Genre:           h.Genre,
			Lyrics:          h.Text,
			Age:             h.Age,
			Popularity:      h.Popularity,
			CommentsDensity: h.CommentsDensity,
		}
		if h.Animation != nil {
			e.Lottie = *h.Animation
		}
		if h.SourceURL != nil {
			e.SourceURL = *h.SourceURL
		}
		f.Lyrics = append(f.Lyrics, e)
	}
	return f
}
