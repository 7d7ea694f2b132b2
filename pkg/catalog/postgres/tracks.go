package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/types"
)

// GetTrack implements [catalog.Store].
func (s *Store) GetTrack(ctx context.Context, id string) (*types.Track, error) {
	const q = `
		SELECT id, title, artist, release_date, language, explicit, duration_ns,
		       local_path, filesize_bytes, play_count, last_played_at
		FROM   tracks
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: get track: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTrack)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: get track: %w", err)
	}
	return &t, nil
}

// UpsertTrack implements [catalog.Store].
func (s *Store) UpsertTrack(ctx context.Context, t types.Track) error {
	const q = `
		INSERT INTO tracks
		    (id, title, artist, release_date, language, explicit, duration_ns,
		     local_path, filesize_bytes, play_count, last_played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
		    title          = EXCLUDED.title,
		    artist         = EXCLUDED.artist,
		    release_date   = EXCLUDED.release_date,
		    language       = EXCLUDED.language,
		    explicit       = EXCLUDED.explicit,
		    duration_ns    = EXCLUDED.duration_ns,
		    local_path     = EXCLUDED.local_path,
		    filesize_bytes = EXCLUDED.filesize_bytes,
		    play_count     = EXCLUDED.play_count,
		    last_played_at = EXCLUDED.last_played_at`

	_, err := s.pool.Exec(ctx, q,
		t.ID, t.Title, t.Artist, nullTime(t.ReleaseDate), t.Language, t.Explicit,
		t.Duration.Nanoseconds(), t.LocalPath, t.FilesizeBytes, t.PlayCount,
		nullTime(t.LastPlayedAt),
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert track: %w", err)
	}
	return nil
}

// SetLocalPath implements [catalog.Store].
func (s *Store) SetLocalPath(ctx context.Context, trackID, path string, filesizeBytes int64) error {
	const q = `UPDATE tracks SET local_path = $2, filesize_bytes = $3 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, trackID, path, filesizeBytes)
	if err != nil {
		return fmt.Errorf("catalog: set local path: %w", err)
	}
	return nil
}

// GetFeatures implements [catalog.Store].
func (s *Store) GetFeatures(ctx context.Context, trackID string) (*types.Features, error) {
	const q = `
		SELECT track_id, tempo, key, mode, energy, danceability, valence,
		       loudness_db, instrumentalness, vector
		FROM   track_features
		WHERE  track_id = $1`

	rows, err := s.pool.Query(ctx, q, trackID)
	if err != nil {
		return nil, fmt.Errorf("catalog: get features: %w", err)
	}
	f, err := pgx.CollectExactlyOneRow(rows, scanFeatures)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: get features: %w", err)
	}
	return &f, nil
}

// UpsertFeatures implements [catalog.Store].
func (s *Store) UpsertFeatures(ctx context.Context, f types.Features) error {
	const q = `
		INSERT INTO track_features
		    (track_id, tempo, key, mode, energy, danceability, valence,
		     loudness_db, instrumentalness, vector)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (track_id) DO UPDATE SET
		    tempo            = EXCLUDED.tempo,
		    key              = EXCLUDED.key,
		    mode             = EXCLUDED.mode,
		    energy           = EXCLUDED.energy,
		    danceability     = EXCLUDED.danceability,
		    valence          = EXCLUDED.valence,
		    loudness_db      = EXCLUDED.loudness_db,
		    instrumentalness = EXCLUDED.instrumentalness,
		    vector           = EXCLUDED.vector`

	var vec *pgvector.Vector
	if len(f.Vector) > 0 {
		v := pgvector.NewVector(f.Vector)
		vec = &v
	}

	_, err := s.pool.Exec(ctx, q,
		f.TrackID, f.Tempo, f.Key, f.Mode, f.Energy, f.Danceability, f.Valence,
		f.LoudnessDB, f.Instrumentalness, vec,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert features: %w", err)
	}
	return nil
}

// GetLyrics implements [catalog.Store].
func (s *Store) GetLyrics(ctx context.Context, trackID string) (*types.LyricsAnalysis, error) {
	const q = `
		SELECT track_id, themes, moods, narrative_style, scores
		FROM   lyrics_analyses
		WHERE  track_id = $1`

	rows, err := s.pool.Query(ctx, q, trackID)
	if err != nil {
		return nil, fmt.Errorf("catalog: get lyrics: %w", err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[types.LyricsAnalysis])
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: get lyrics: %w", err)
	}
	return &l, nil
}

// UpsertLyrics implements [catalog.Store].
func (s *Store) UpsertLyrics(ctx context.Context, l types.LyricsAnalysis) error {
	const q = `
		INSERT INTO lyrics_analyses (track_id, themes, moods, narrative_style, scores)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (track_id) DO UPDATE SET
		    themes          = EXCLUDED.themes,
		    moods           = EXCLUDED.moods,
		    narrative_style = EXCLUDED.narrative_style,
		    scores          = EXCLUDED.scores`

	_, err := s.pool.Exec(ctx, q, l.TrackID, l.Themes, l.Moods, l.NarrativeStyle, l.Scores)
	if err != nil {
		return fmt.Errorf("catalog: upsert lyrics: %w", err)
	}
	return nil
}

// CachedCandidates implements [catalog.Store]. When q.MoodVector is set,
// results are ranked by ascending cosine distance to it using the pgvector
// HNSW index on track_features; otherwise results are ordered by ascending
// last_played_at, never-played tracks first. Play count does not affect the
// order.
func (s *Store) CachedCandidates(ctx context.Context, q catalog.CandidateQuery) ([]types.Track, error) {
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"t.local_path != ''"}
	if len(q.Exclude) > 0 {
		conditions = append(conditions, "t.id != ALL("+next(q.Exclude)+")")
	}

	orderBy := "t.last_played_at ASC NULLS FIRST"
	join := ""
	if len(q.MoodVector) > 0 {
		vec := pgvector.NewVector(q.MoodVector)
		join = "LEFT JOIN track_features f ON f.track_id = t.id"
		orderBy = fmt.Sprintf("f.vector <=> %s", next(vec))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	limitArg := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT t.id, t.title, t.artist, t.release_date, t.language, t.explicit,
		       t.duration_ns, t.local_path, t.filesize_bytes, t.play_count, t.last_played_at
		FROM   tracks t
		%s
		WHERE  %s
		ORDER  BY %s
		LIMIT  %s`, join, strings.Join(conditions, " AND "), orderBy, limitArg)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: cached candidates: %w", err)
	}
	tracks, err := pgx.CollectRows(rows, scanTrack)
	if err != nil {
		return nil, fmt.Errorf("catalog: cached candidates: scan rows: %w", err)
	}
	if tracks == nil {
		tracks = []types.Track{}
	}
	return tracks, nil
}

// LeastRecentlyPlayedCached implements [catalog.Store].
func (s *Store) LeastRecentlyPlayedCached(ctx context.Context, limit int) ([]types.Track, error) {
	const q = `
		SELECT id, title, artist, release_date, language, explicit, duration_ns,
		       local_path, filesize_bytes, play_count, last_played_at
		FROM   tracks
		WHERE  local_path != ''
		ORDER  BY last_played_at ASC NULLS FIRST
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: least recently played: %w", err)
	}
	tracks, err := pgx.CollectRows(rows, scanTrack)
	if err != nil {
		return nil, fmt.Errorf("catalog: least recently played: scan rows: %w", err)
	}
	if tracks == nil {
		tracks = []types.Track{}
	}
	return tracks, nil
}

// TotalCachedBytes implements [catalog.Store].
func (s *Store) TotalCachedBytes(ctx context.Context) (int64, error) {
	const q = `SELECT COALESCE(SUM(filesize_bytes), 0) FROM tracks WHERE local_path != ''`
	var total int64
	if err := s.pool.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, fmt.Errorf("catalog: total cached bytes: %w", err)
	}
	return total, nil
}

func scanTrack(row pgx.CollectableRow) (types.Track, error) {
	var (
		t                         types.Track
		durationNS                int64
		releaseDate, lastPlayedAt *time.Time
	)
	if err := row.Scan(
		&t.ID, &t.Title, &t.Artist, &releaseDate, &t.Language, &t.Explicit,
		&durationNS, &t.LocalPath, &t.FilesizeBytes, &t.PlayCount, &lastPlayedAt,
	); err != nil {
		return types.Track{}, err
	}
	t.Duration = time.Duration(durationNS)
	if releaseDate != nil {
		t.ReleaseDate = *releaseDate
	}
	if lastPlayedAt != nil {
		t.LastPlayedAt = *lastPlayedAt
	}
	return t, nil
}

func scanFeatures(row pgx.CollectableRow) (types.Features, error) {
	var (
		f   types.Features
		vec *pgvector.Vector
	)
	if err := row.Scan(
		&f.TrackID, &f.Tempo, &f.Key, &f.Mode, &f.Energy, &f.Danceability,
		&f.Valence, &f.LoudnessDB, &f.Instrumentalness, &vec,
	); err != nil {
		return types.Features{}, err
	}
	if vec != nil {
		f.Vector = vec.Slice()
	}
	return f, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
