// Package postgres is a PostgreSQL-backed implementation of [catalog.Store],
// adapted from the teacher's three-layer memory schema: the track/features
// tables take the shape of the teacher's L1 session log (append/lookup by
// key), and the feature-vector index takes the shape of its L2 semantic
// index (pgvector HNSW cosine search), with the L3 knowledge graph dropped —
// see DESIGN.md for why.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTracks = `
CREATE TABLE IF NOT EXISTS tracks (
    id              TEXT         PRIMARY KEY,
    title           TEXT         NOT NULL,
    artist          TEXT         NOT NULL,
    release_date    TIMESTAMPTZ,
    language        TEXT         NOT NULL DEFAULT '',
    explicit        BOOLEAN      NOT NULL DEFAULT false,
    duration_ns     BIGINT       NOT NULL DEFAULT 0,
    local_path      TEXT         NOT NULL DEFAULT '',
    filesize_bytes  BIGINT       NOT NULL DEFAULT 0,
    play_count      INTEGER      NOT NULL DEFAULT 0,
    last_played_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tracks_local_path
    ON tracks (local_path) WHERE local_path != '';

CREATE INDEX IF NOT EXISTS idx_tracks_last_played_at
    ON tracks (last_played_at);
`

const ddlLyrics = `
CREATE TABLE IF NOT EXISTS lyrics_analyses (
    track_id         TEXT   PRIMARY KEY REFERENCES tracks (id) ON DELETE CASCADE,
    themes           JSONB  NOT NULL DEFAULT '[]',
    moods            JSONB  NOT NULL DEFAULT '[]',
    narrative_style  TEXT   NOT NULL DEFAULT '',
    scores           JSONB  NOT NULL DEFAULT '{}'
);
`

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT         PRIMARY KEY,
    started_at TIMESTAMPTZ  NOT NULL,
    ended_at   TIMESTAMPTZ,
    mode       TEXT         NOT NULL DEFAULT ''
);
`

const ddlPlayHistory = `
CREATE TABLE IF NOT EXISTS play_history (
    id              BIGSERIAL    PRIMARY KEY,
    session_id      TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    track_id        TEXT         NOT NULL REFERENCES tracks (id),
    started_at      TIMESTAMPTZ  NOT NULL,
    transition_kind TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_play_history_session_started
    ON play_history (session_id, started_at DESC);

CREATE INDEX IF NOT EXISTS idx_play_history_started
    ON play_history (started_at DESC);
`

const ddlSegments = `
CREATE TABLE IF NOT EXISTS segments (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    index       INTEGER      NOT NULL,
    track_id    TEXT         NOT NULL REFERENCES tracks (id),
    file_path   TEXT         NOT NULL,
    duration_ns BIGINT       NOT NULL,
    used_voice  BOOLEAN      NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_segments_session_index
    ON segments (session_id, index);
`

const ddlPlannerTraces = `
CREATE TABLE IF NOT EXISTS planner_traces (
    id               BIGSERIAL    PRIMARY KEY,
    session_id       TEXT         NOT NULL,
    stage            TEXT         NOT NULL,
    prompt           TEXT         NOT NULL DEFAULT '',
    response         TEXT         NOT NULL DEFAULT '',
    model            TEXT         NOT NULL DEFAULT '',
    reasoning_budget  INTEGER     NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_planner_traces_session_created
    ON planner_traces (session_id, created_at DESC);
`

// ddlFeatures returns the track-features DDL with the embedding vector
// dimension substituted, the same pattern the teacher uses for its L2 chunk
// table.
func ddlFeatures(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS track_features (
    track_id          TEXT     PRIMARY KEY REFERENCES tracks (id) ON DELETE CASCADE,
    tempo             DOUBLE PRECISION NOT NULL DEFAULT 0,
    key                INTEGER NOT NULL DEFAULT 0,
    mode               INTEGER NOT NULL DEFAULT 0,
    energy            DOUBLE PRECISION NOT NULL DEFAULT 0,
    danceability      DOUBLE PRECISION NOT NULL DEFAULT 0,
    valence           DOUBLE PRECISION NOT NULL DEFAULT 0,
    loudness_db       DOUBLE PRECISION NOT NULL DEFAULT 0,
    instrumentalness  DOUBLE PRECISION NOT NULL DEFAULT 0,
    vector            vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_track_features_vector
    ON track_features USING hnsw (vector vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables, indexes, and extensions
// exist. Idempotent; safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlTracks,
		ddlFeatures(embeddingDimensions),
		ddlLyrics,
		ddlSessions,
		ddlPlayHistory,
		ddlSegments,
		ddlPlannerTraces,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("catalog migrate: %w", err)
		}
	}
	return nil
}
