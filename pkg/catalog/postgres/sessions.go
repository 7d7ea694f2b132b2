package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/airwavefm/aidj/pkg/types"
)

// CreateSession implements [catalog.Store].
func (s *Store) CreateSession(ctx context.Context, sess types.Session) error {
	const q = `INSERT INTO sessions (id, started_at, mode) VALUES ($1, $2, $3)`
	_, err := s.pool.Exec(ctx, q, sess.ID, sess.StartedAt, sess.Mode)
	if err != nil {
		return fmt.Errorf("catalog: create session: %w", err)
	}
	return nil
}

// EndSession implements [catalog.Store].
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	const q = `UPDATE sessions SET ended_at = $2 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, sessionID, endedAt)
	if err != nil {
		return fmt.Errorf("catalog: end session: %w", err)
	}
	return nil
}

// RecentPlays implements [catalog.Store].
func (s *Store) RecentPlays(ctx context.Context, sessionID string, n int) ([]types.PlayHistoryEntry, error) {
	const q = `
		SELECT id, session_id, track_id, started_at, transition_kind
		FROM   play_history
		WHERE  session_id = $1
		ORDER  BY started_at DESC
		LIMIT  $2`
	return collectPlayHistory(ctx, s, q, sessionID, n)
}

// GlobalRecentPlays implements [catalog.Store].
func (s *Store) GlobalRecentPlays(ctx context.Context, n int) ([]types.PlayHistoryEntry, error) {
	const q = `
		SELECT id, session_id, track_id, started_at, transition_kind
		FROM   play_history
		ORDER  BY started_at DESC
		LIMIT  $1`
	return collectPlayHistory(ctx, s, q, n)
}

func collectPlayHistory(ctx context.Context, s *Store, q string, args ...any) ([]types.PlayHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: play history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.PlayHistoryEntry])
	if err != nil {
		return nil, fmt.Errorf("catalog: play history: scan rows: %w", err)
	}
	if entries == nil {
		entries = []types.PlayHistoryEntry{}
	}
	return entries, nil
}

// InsertPlayHistory implements [catalog.Store].
func (s *Store) InsertPlayHistory(ctx context.Context, e types.PlayHistoryEntry) error {
	const q = `
		INSERT INTO play_history (session_id, track_id, started_at, transition_kind)
		VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, q, e.SessionID, e.TrackID, e.StartedAt, e.TransitionKind)
	if err != nil {
		return fmt.Errorf("catalog: insert play history: %w", err)
	}
	return nil
}

// IncrementPlayCount implements [catalog.Store].
func (s *Store) IncrementPlayCount(ctx context.Context, trackID string, playedAt time.Time) error {
	const q = `UPDATE tracks SET play_count = play_count + 1, last_played_at = $2 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, trackID, playedAt)
	if err != nil {
		return fmt.Errorf("catalog: increment play count: %w", err)
	}
	return nil
}

// InsertSegment implements [catalog.Store].
func (s *Store) InsertSegment(ctx context.Context, seg types.Segment) error {
	const q = `
		INSERT INTO segments (session_id, index, track_id, file_path, duration_ns, used_voice)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q,
		seg.SessionID, seg.Index, seg.TrackID, seg.FilePath, seg.Duration.Nanoseconds(), seg.UsedVoice)
	if err != nil {
		return fmt.Errorf("catalog: insert segment: %w", err)
	}
	return nil
}

// InsertPlannerTrace implements [catalog.Store].
func (s *Store) InsertPlannerTrace(ctx context.Context, t types.PlannerTrace) error {
	const q = `
		INSERT INTO planner_traces (session_id, stage, prompt, response, model, reasoning_budget)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q, t.SessionID, t.Stage, t.Prompt, t.Response, t.Model, t.ReasoningBudget)
	if err != nil {
		return fmt.Errorf("catalog: insert planner trace: %w", err)
	}
	return nil
}

// RecentTraces implements [catalog.Store].
func (s *Store) RecentTraces(ctx context.Context, sessionID string, limit int) ([]types.PlannerTrace, error) {
	const q = `
		SELECT id, session_id, stage, prompt, response, model, reasoning_budget, created_at
		FROM   planner_traces
		WHERE  session_id = $1
		ORDER  BY created_at DESC
		LIMIT  $2`
	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: recent traces: %w", err)
	}
	traces, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.PlannerTrace])
	if err != nil {
		return nil, fmt.Errorf("catalog: recent traces: scan rows: %w", err)
	}
	if traces == nil {
		traces = []types.PlannerTrace{}
	}
	return traces, nil
}
