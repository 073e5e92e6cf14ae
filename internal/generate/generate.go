// Package generate produces the AI side of the survey: one lyric per genre
// for a session, written by an LLM and stored in the session's pool.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/llm"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

const lyricPrompt = `Generate a full Mauritian Sega song in the genre "%s".

FORMAT RULES:
- Do NOT include a title
- Do NOT label sections like verse or chorus
- Do NOT use french words unless it helps develop the theme
- Each stanza should have around 3 to 4 lines
- Each line should be at least 5 words long
- No markdown, no asterisks
- Write lyrics only with natural stanza breaks

STYLE:
- Sega rhythm
- Emotional and descriptive
- No explanations`

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ErrNoProvider is returned when no LLM provider is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Options configures generation.
type Options struct {
	Genres            []string
	PerSession        int
	MaxTokens         int
	Temperature       float64
	FrequencyPenalty  float64
	RequestsPerSecond float64
}

// Result holds the outcome of generating one session.
type Result struct {
	SessionID string
	Genres    []string
	Created   int
	Skipped   bool
}

// Generator writes AI lyrics for sessions.
type Generator struct {
	db       *database.DB
	provider llm.Provider
	opts     Options
	limiter  *rate.Limiter
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGenerator creates a generator. provider may be nil, in which case every
// call returns ErrNoProvider.
func NewGenerator(db *database.DB, provider llm.Provider, opts Options, rng *rand.Rand, logger *slog.Logger) *Generator {
	if len(opts.Genres) == 0 {
		opts.Genres = lyrics.Genres
	}
	if opts.PerSession <= 0 || opts.PerSession > len(opts.Genres) {
		opts.PerSession = min(lyrics.SelectionSize, len(opts.Genres))
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Generator{
		db:       db,
		provider: provider,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, opts.PerSession),
		rng:      rng,
		logger:   logger,
	}
}

// GenerateSession fills the session's pool up to PerSession genres. Genres
// are drawn at random from the configured list. Calling it again for a
// complete session does nothing. Rows are only stored when every genre
// succeeded.
func (g *Generator) GenerateSession(ctx context.Context, sessionID string) (*Result, error) {
	if g.provider == nil {
		return nil, ErrNoProvider
	}

	existing, err := g.db.SessionAILyrics(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= g.opts.PerSession {
		g.logger.Debug("session already generated", "session_id", sessionID, "count", len(existing))
		return &Result{SessionID: sessionID, Skipped: true}, nil
	}

	genres := g.pickGenres(existing)
	g.logger.Info("generating lyrics", "session_id", sessionID, "genres", strings.Join(genres, ","), "provider", g.provider.Name())

	rows := make([]lyrics.AILyric, len(genres))
	eg, egctx := errgroup.WithContext(ctx)
	for i, genre := range genres {
		eg.Go(func() error {
			row, err := g.generateOne(egctx, sessionID, genre)
			if err != nil {
				return fmt.Errorf("generating %s: %w", genre, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	created, err := g.db.InsertAILyrics(ctx, rows)
	if err != nil {
		return nil, err
	}

	g.logger.Info("stored generated lyrics", "session_id", sessionID, "count", created)
	return &Result{SessionID: sessionID, Genres: genres, Created: created}, nil
}

func (g *Generator) generateOne(ctx context.Context, sessionID, genre string) (lyrics.AILyric, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return lyrics.AILyric{}, err
	}

	text, err := g.provider.Generate(ctx, llm.Request{
		Prompt:           fmt.Sprintf(lyricPrompt, genre),
		MaxTokens:        g.opts.MaxTokens,
		Temperature:      g.opts.Temperature,
		FrequencyPenalty: g.opts.FrequencyPenalty,
	})
	if err != nil {
		return lyrics.AILyric{}, err
	}

	text = llm.CleanLyrics(text)
	if text == "" {
		return lyrics.AILyric{}, fmt.Errorf("empty response")
	}

	suffix, err := gonanoid.Generate(idAlphabet, 10)
	if err != nil {
		return lyrics.AILyric{}, fmt.Errorf("generate id: %w", err)
	}

	g.logger.Debug("generated lyric", "session_id", sessionID, "genre", genre, "words", llm.WordCount(text))
	return lyrics.AILyric{
		ID:        genre + "_" + suffix,
		SessionID: sessionID,
		Genre:     genre,
		Text:      text,
	}, nil
}

// pickGenres returns the genres still needed, in random order.
func (g *Generator) pickGenres(existing []lyrics.AILyric) []string {
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[strings.ToLower(r.Genre)] = true
	}

	candidates := make([]string, 0, len(g.opts.Genres))
	for _, genre := range g.opts.Genres {
		if !have[strings.ToLower(genre)] {
			candidates = append(candidates, genre)
		}
	}
	g.rngMu.Lock()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	g.rngMu.Unlock()

	need := g.opts.PerSession - len(existing)
	if need > len(candidates) {
		need = len(candidates)
	}
	return candidates[:need]
}

// GenreStatus is the generation state of one genre for a session.
type GenreStatus struct {
	Genre string `json:"genre"`
	Ready bool   `json:"ready"`
	AIID  string `json:"ai_id,omitempty"`
}

// Status reports a session's generation progress.
type Status struct {
	SessionID string        `json:"session_id"`
	State     string        `json:"state"`
	Count     int           `json:"count"`
	Required  int           `json:"required"`
	Ready     bool          `json:"ready"`
	Genres    []GenreStatus `json:"genres"`
}

// Generation states.
const (
	StateNotStarted = "not_started"
	StateGenerating = "generating"
	StateComplete   = "complete"
)

// Status returns per-genre readiness for a session.
func (g *Generator) Status(ctx context.Context, sessionID string) (*Status, error) {
	rows, err := g.db.SessionAILyrics(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byGenre := make(map[string]string, len(rows))
	for _, r := range rows {
		byGenre[strings.ToLower(r.Genre)] = r.ID
	}

	s := &Status{
		SessionID: sessionID,
		Count:     len(rows),
		Required:  g.opts.PerSession,
		Ready:     len(rows) >= g.opts.PerSession,
	}
	for _, genre := range g.opts.Genres {
		id, ok := byGenre[strings.ToLower(genre)]
		s.Genres = append(s.Genres, GenreStatus{Genre: genre, Ready: ok, AIID: id})
	}

	switch {
	case s.Ready:
		s.State = StateComplete
	case len(rows) > 0:
		s.State = StateGenerating
	default:
		s.State = StateNotStarted
	}
	return s, nil
}
