package database

import (
	"database/sql"
	"strings"
)

// dialect holds the column types that differ between drivers.
type dialect struct {
	Serial string
}

func (db *DB) dialect() dialect {
	if db.driver == DriverPostgres {
		return dialect{Serial: "BIGSERIAL PRIMARY KEY"}
	}
	return dialect{Serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}
}

// expand fills {{serial}} in DDL for the dialect.
func (d dialect) expand(ddl string) string {
	return strings.ReplaceAll(ddl, "{{serial}}", d.Serial)
}

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx, d dialect) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "lyric corpus, AI pool and selections",
		Up: func(tx *sql.Tx, d dialect) error {
			_, err := tx.Exec(d.expand(`
CREATE TABLE IF NOT EXISTS human_lyrics (
    sid {{serial}},
    genre TEXT NOT NULL,
    lyrics TEXT NOT NULL,
    age INTEGER,
    popularity DOUBLE PRECISION,
    comments_density DOUBLE PRECISION,
    lottie TEXT,
    source_url TEXT UNIQUE,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_ai_lyrics (
    ai_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    genre TEXT NOT NULL,
    lyrics TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (session_id, genre)
);

CREATE INDEX IF NOT EXISTS idx_session_ai_lyrics_created ON session_ai_lyrics(created_at);

CREATE TABLE IF NOT EXISTS session_real_sega_chosen (
    session_id TEXT PRIMARY KEY,
    sid1 BIGINT NOT NULL,
    sid2 BIGINT NOT NULL,
    sid3 BIGINT NOT NULL,
    sid4 BIGINT NOT NULL,
    sid5 BIGINT NOT NULL,
    updated_at TEXT NOT NULL
);
`))
			return err
		},
	},
	{
		Version:     2,
		Description: "survey sessions, votes and vote locks",
		Up: func(tx *sql.Tx, d dialect) error {
			_, err := tx.Exec(d.expand(`
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    participant_age INTEGER,
    sega_familiarity INTEGER,
    ai_sentiment INTEGER,
    opinion TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_votes (
    session_id TEXT NOT NULL,
    lyric_id TEXT NOT NULL,
    genre TEXT NOT NULL,
    is_ai BOOLEAN NOT NULL,
    vote TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (session_id, lyric_id)
);

CREATE TABLE IF NOT EXISTS session_trackers (
    ip_address TEXT PRIMARY KEY,
    session_id TEXT,
    locked_at TEXT NOT NULL
);
`))
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
