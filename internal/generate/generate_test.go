package generate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/llm"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

type mockProvider struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }
func (m *mockProvider) Name() string       { return "mock" }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(db *database.DB, p llm.Provider) *Generator {
	return NewGenerator(db, p, Options{
		Genres:     lyrics.Genres,
		PerSession: 5,
		MaxTokens:  1200,
	}, rand.New(rand.NewPCG(1, 2)), testLogger())
}

func TestGenerateSession(t *testing.T) {
	db := openTestDB(t)
	p := &mockProvider{response: "```\n**Lamer ble** ek so lavag blan\n```"}
	g := newTestGenerator(db, p)

	res, err := g.GenerateSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Created)
	assert.Len(t, res.Genres, 5)
	assert.False(t, res.Skipped)

	rows, err := db.SessionAILyrics(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 5)

	genres := map[string]bool{}
	for _, r := range rows {
		assert.False(t, genres[r.Genre], "duplicate genre %s", r.Genre)
		genres[r.Genre] = true
		assert.True(t, strings.HasPrefix(r.ID, r.Genre+"_"), "id %s should start with genre", r.ID)
		assert.Equal(t, "Lamer ble ek so lavag blan", r.Text)
		assert.True(t, lyrics.IsKnownGenre(r.Genre))
	}
	assert.Len(t, p.prompts, 5)
}

func TestGenerateSessionIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	p := &mockProvider{response: "Sega lor lasab"}
	g := newTestGenerator(db, p)
	ctx := context.Background()

	_, err := g.GenerateSession(ctx, "s1")
	require.NoError(t, err)

	res, err := g.GenerateSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, p.prompts, 5, "second call should not reach the provider")

	n, _ := db.CountSessionAILyrics(ctx, "s1")
	assert.Equal(t, 5, n)
}

func TestGenerateSessionTopsUpPartial(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.InsertAILyrics(ctx, []lyrics.AILyric{
		{ID: "tipik_old", SessionID: "s1", Genre: "tipik", Text: "old"},
		{ID: "hotel_old", SessionID: "s1", Genre: "hotel", Text: "old"},
	})
	require.NoError(t, err)

	p := &mockProvider{response: "Nouvo sega"}
	g := newTestGenerator(db, p)
	res, err := g.GenerateSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	for _, genre := range res.Genres {
		assert.NotEqual(t, "tipik", genre)
		assert.NotEqual(t, "hotel", genre)
	}

	n, _ := db.CountSessionAILyrics(ctx, "s1")
	assert.Equal(t, 5, n)
}

func TestGenerateSessionAllOrNothing(t *testing.T) {
	db := openTestDB(t)
	// Every genre fails so the outcome does not depend on which are drawn.
	p := &mockProvider{err: errors.New("boom")}
	g := newTestGenerator(db, p)

	_, err := g.GenerateSession(context.Background(), "s1")
	require.Error(t, err)

	n, _ := db.CountSessionAILyrics(context.Background(), "s1")
	assert.Zero(t, n)
}

func TestGenerateSessionEmptyResponse(t *testing.T) {
	db := openTestDB(t)
	g := newTestGenerator(db, &mockProvider{response: "```\n```"})
	_, err := g.GenerateSession(context.Background(), "s1")
	assert.Error(t, err)
}

func TestGenerateSessionNoProvider(t *testing.T) {
	db := openTestDB(t)
	g := NewGenerator(db, nil, Options{}, rand.New(rand.NewPCG(1, 2)), testLogger())
	_, err := g.GenerateSession(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenreChoiceVaries(t *testing.T) {
	db := openTestDB(t)
	g := newTestGenerator(db, &mockProvider{response: "x"})

	sets := map[string]bool{}
	for i := 0; i < 20; i++ {
		picked := g.pickGenres(nil)
		require.Len(t, picked, 5)
		sets[strings.Join(picked, ",")] = true
	}
	assert.Greater(t, len(sets), 1)
}

func TestStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	g := newTestGenerator(db, &mockProvider{response: "x"})

	st, err := g.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, st.State)
	assert.False(t, st.Ready)
	assert.Len(t, st.Genres, len(lyrics.Genres))

	db.InsertAILyrics(ctx, []lyrics.AILyric{{ID: "tipik_1", SessionID: "s1", Genre: "tipik", Text: "x"}})
	st, err = g.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateGenerating, st.State)
	for _, gs := range st.Genres {
		if gs.Genre == "tipik" {
			assert.True(t, gs.Ready)
			assert.Equal(t, "tipik_1", gs.AIID)
		} else {
			assert.False(t, gs.Ready)
		}
	}

	_, err = g.GenerateSession(ctx, "s1")
	require.NoError(t, err)
	st, err = g.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateComplete, st.State)
	assert.True(t, st.Ready)
	assert.Equal(t, 5, st.Count)
}

func TestPoolProcessesSubmittedSessions(t *testing.T) {
	db := openTestDB(t)
	g := newTestGenerator(db, &mockProvider{response: "Sega"})
	pool := NewPool(g, 4, testLogger())
	pool.Start(2)

	assert.True(t, pool.Submit("a"))
	assert.True(t, pool.Submit("b"))
	pool.Stop()

	for _, id := range []string{"a", "b"} {
		n, err := db.CountSessionAILyrics(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 5, n, "session %s", id)
		assert.False(t, pool.InFlight(id))
	}
}

func TestPoolDropsWhenFull(t *testing.T) {
	db := openTestDB(t)
	g := newTestGenerator(db, &mockProvider{response: "Sega"})
	pool := NewPool(g, 1, testLogger())

	// No workers started, so the single slot stays occupied.
	assert.True(t, pool.Submit("a"))
	assert.True(t, pool.Submit("a"), "duplicate submit is accepted")
	assert.False(t, pool.Submit("b"))

	pool.Start(1)
	pool.Stop()

	deadline := time.Now().Add(time.Second)
	for pool.InFlight("a") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, pool.InFlight("a"))
}

func TestPoolStopIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	pool := NewPool(newTestGenerator(db, &mockProvider{response: "Sega"}), 2, testLogger())
	pool.Start(1)
	pool.Stop()
	pool.Stop()
	assert.False(t, pool.Submit("late"))
}
