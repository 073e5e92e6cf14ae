package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestInsertHumanLyric(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertHumanLyric(ctx, lyrics.HumanLyric{
		Genre:      "tipik",
		Text:       "Ti pe dans lor lasab",
		Age:        ptr(60),
		Popularity: ptr(4.5),
		SourceURL:  ptr("https://example.com/sega/1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero sid")
	}

	rows, err := db.HumanLyrics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.Age == nil || *got.Age != 60 {
		t.Errorf("expected age 60, got %v", got.Age)
	}
	if got.CommentsDensity != nil {
		t.Errorf("expected nil comments density, got %v", *got.CommentsDensity)
	}
	if got.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}
}

func TestInsertDuplicateHumanLyric(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, _ = db.InsertHumanLyric(ctx, lyrics.HumanLyric{Genre: "tipik", Text: "a", SourceURL: ptr("https://dup")})
	id, err := db.InsertHumanLyric(ctx, lyrics.HumanLyric{Genre: "tipik", Text: "b", SourceURL: ptr("https://dup")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate source url")
	}

	// Rows without a source URL never conflict.
	for i := 0; i < 2; i++ {
		id, err := db.InsertHumanLyric(ctx, lyrics.HumanLyric{Genre: "romance", Text: "c"})
		if err != nil || id == 0 {
			t.Fatalf("expected insert without url to succeed, id=%d err=%v", id, err)
		}
	}

	exists, err := db.HumanLyricExists(ctx, "https://dup")
	if err != nil || !exists {
		t.Errorf("expected url to exist, got %v %v", exists, err)
	}
}

func TestAILyricsLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rows := []lyrics.AILyric{
		{ID: "tipik_1", SessionID: "s1", Genre: "tipik", Text: "one"},
		{ID: "romance_1", SessionID: "s1", Genre: "romance", Text: "two"},
		{ID: "hotel_1", SessionID: "s2", Genre: "hotel", Text: "three"},
	}
	n, err := db.InsertAILyrics(ctx, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 inserted, got %d", n)
	}

	// Same session and genre is skipped.
	n, err = db.InsertAILyrics(ctx, []lyrics.AILyric{{ID: "tipik_2", SessionID: "s1", Genre: "tipik", Text: "again"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected duplicate genre to be skipped, got %d", n)
	}

	got, err := db.SessionAILyrics(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "tipik_1" || got[1].ID != "romance_1" {
		t.Errorf("unexpected session rows: %+v", got)
	}

	count, err := db.CountSessionAILyrics(ctx, "s2")
	if err != nil || count != 1 {
		t.Errorf("expected 1 row for s2, got %d (%v)", count, err)
	}

	recent, err := db.RecentAILyrics(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "hotel_1" {
		t.Errorf("expected newest first, got %+v", recent)
	}
}

func TestUpsertSelection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSelection(ctx, "s1", []int64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.UpsertSelection(ctx, "s1", []int64{6, 7, 8, 9, 10}); err != nil {
		t.Fatalf("unexpected error on overwrite: %v", err)
	}

	sel, err := db.GetSelection(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel == nil {
		t.Fatal("expected selection")
	}
	if fmt.Sprint(sel.IDs) != "[6 7 8 9 10]" {
		t.Errorf("expected overwritten ids, got %v", sel.IDs)
	}

	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM session_real_sega_chosen").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 selection row, got %d", n)
	}

	missing, err := db.GetSelection(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil selection for unknown session, got %v %v", missing, err)
	}
}

func TestUpsertSelectionRejectsWrongSize(t *testing.T) {
	db := openTestDB(t)
	err := db.UpsertSelection(context.Background(), "s1", []int64{1, 2, 3})
	if !errors.Is(err, lyrics.ErrInvalidSelectionSize) {
		t.Errorf("expected ErrInvalidSelectionSize, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSession(ctx, "s1", 34, 4, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.UpdateOpinion(ctx, "s1", "Bon travay"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Updating preferences keeps the opinion.
	if err := db.UpsertSession(ctx, "s1", 35, 4, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected session")
	}
	if s.ParticipantAge == nil || *s.ParticipantAge != 35 {
		t.Errorf("expected age 35, got %v", s.ParticipantAge)
	}
	if s.AISentiment == nil || *s.AISentiment != 5 {
		t.Errorf("expected sentiment 5, got %v", s.AISentiment)
	}
	if s.Opinion == nil || *s.Opinion != "Bon travay" {
		t.Errorf("expected opinion kept, got %v", s.Opinion)
	}

	none, err := db.GetSession(ctx, "missing")
	if err != nil || none != nil {
		t.Errorf("expected nil for missing session, got %v %v", none, err)
	}
}

func TestSaveVotesReplaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := []Vote{
		{LyricID: "12", Genre: "tipik", IsAI: false, Vote: "human"},
		{LyricID: "tipik_x", Genre: "tipik", IsAI: true, Vote: "ai"},
	}
	if err := db.SaveVotes(ctx, "s1", first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.SaveVotes(ctx, "s1", []Vote{{LyricID: "12", Genre: "tipik", Vote: "ai"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	votes, err := db.GetVotes(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(votes) != 1 || votes[0].Vote != "ai" || votes[0].IsAI {
		t.Errorf("expected the second save to replace the first, got %+v", votes)
	}
}

func TestLockIP(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	locked, err := db.IsIPLocked(ctx, "10.0.0.1")
	if err != nil || locked {
		t.Fatalf("expected unlocked, got %v %v", locked, err)
	}

	created, err := db.LockIP(ctx, "10.0.0.1", "s1")
	if err != nil || !created {
		t.Fatalf("expected first lock to succeed, got %v %v", created, err)
	}
	created, err = db.LockIP(ctx, "10.0.0.1", "s2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected second lock to report already locked")
	}

	locked, _ = db.IsIPLocked(ctx, "10.0.0.1")
	if !locked {
		t.Error("expected ip to be locked")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.InsertHumanLyric(ctx, lyrics.HumanLyric{Genre: "tipik", Text: "a"})
	db.InsertAILyrics(ctx, []lyrics.AILyric{
		{ID: "tipik_1", SessionID: "s1", Genre: "tipik", Text: "x"},
		{ID: "hotel_1", SessionID: "s2", Genre: "hotel", Text: "y"},
	})
	db.UpsertSession(ctx, "s1", 20, 3, 3)
	db.LockIP(ctx, "1.2.3.4", "s1")

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.HumanLyrics != 1 {
		t.Errorf("expected 1 human lyric, got %d", stats.HumanLyrics)
	}
	if stats.AILyrics != 2 || stats.AISessions != 2 {
		t.Errorf("expected 2 AI lyrics across 2 sessions, got %d/%d", stats.AILyrics, stats.AISessions)
	}
	if stats.Sessions != 1 || stats.LockedIPs != 1 {
		t.Errorf("unexpected session/lock counts: %+v", stats)
	}
	if stats.LastGenerated == "" {
		t.Error("expected last generated timestamp")
	}
}
