// Package catalog defines the Catalog Store (CS): the system of record for
// tracks, their derived audio/lyrics features, session and play history, and
// planner traces.
//
// The store is organized the way the teacher's memory architecture was, but
// flattened to a single domain-shaped interface: the DJ has no multi-hop
// knowledge graph to traverse, only tracks, the history of what has played,
// and the rendered segments that carried them. A [Store] is obtained from a
// concrete backend ([postgres.NewStore] for production, [memstore.New] for
// tests) and is safe for concurrent use.
package catalog

import (
	"context"
	"time"

	"github.com/airwavefm/aidj/pkg/types"
)

// CandidateQuery narrows [Store.CachedCandidates] to tracks eligible for
// selection.
type CandidateQuery struct {
	// Exclude lists track IDs that must not be returned (recent plays).
	Exclude []string

	// MoodVector, when non-nil, ranks results by ascending cosine distance to
	// this feature vector instead of returning them in arbitrary order.
	MoodVector []float32

	// Limit caps the number of candidates returned. Zero means the
	// implementation's own default.
	Limit int
}

// Store is the Catalog Store capability. Every method that can fail returns
// an error wrapping the underlying cause; Insert* methods used for
// best-effort logging (segments, play history, planner traces) are designed
// to be called without aborting the caller's own operation on failure — the
// caller decides how to react.
type Store interface {
	// GetTrack returns the track by id, or (nil, nil) if it does not exist.
	GetTrack(ctx context.Context, id string) (*types.Track, error)

	// UpsertTrack inserts or completely replaces a track row.
	UpsertTrack(ctx context.Context, t types.Track) error

	// SetLocalPath records (or clears, when path is "") the cache location and
	// size of a track's audio file.
	SetLocalPath(ctx context.Context, trackID, path string, filesizeBytes int64) error

	// GetFeatures returns a track's audio features, or (nil, nil) if absent.
	GetFeatures(ctx context.Context, trackID string) (*types.Features, error)

	// UpsertFeatures inserts or replaces a track's audio features.
	UpsertFeatures(ctx context.Context, f types.Features) error

	// GetLyrics returns a track's lyrics analysis, or (nil, nil) if absent.
	GetLyrics(ctx context.Context, trackID string) (*types.LyricsAnalysis, error)

	// UpsertLyrics inserts or replaces a track's lyrics analysis.
	UpsertLyrics(ctx context.Context, l types.LyricsAnalysis) error

	// CachedCandidates returns tracks that are currently cached (Track.Cached
	// is true) and satisfy q. Returns an empty (non-nil) slice when none
	// match.
	CachedCandidates(ctx context.Context, q CandidateQuery) ([]types.Track, error)

	// CreateSession records the start of a new broadcast session.
	CreateSession(ctx context.Context, s types.Session) error

	// EndSession marks a session as ended at endedAt.
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	// RecentPlays returns the most recent n play-history entries for
	// sessionID, most recent first. Returns an empty (non-nil) slice when none
	// exist.
	RecentPlays(ctx context.Context, sessionID string, n int) ([]types.PlayHistoryEntry, error)

	// GlobalRecentPlays returns the most recent n play-history entries across
	// all sessions, most recent first.
	GlobalRecentPlays(ctx context.Context, n int) ([]types.PlayHistoryEntry, error)

	// InsertPlayHistory appends a play-history entry.
	InsertPlayHistory(ctx context.Context, e types.PlayHistoryEntry) error

	// IncrementPlayCount increments a track's PlayCount and updates
	// LastPlayedAt to now.
	IncrementPlayCount(ctx context.Context, trackID string, playedAt time.Time) error

	// InsertSegment records a rendered segment.
	InsertSegment(ctx context.Context, seg types.Segment) error

	// TotalCachedBytes sums FilesizeBytes across all currently cached tracks.
	TotalCachedBytes(ctx context.Context) (int64, error)

	// LeastRecentlyPlayedCached returns up to limit cached tracks ordered by
	// ascending LastPlayedAt (stalest first), the eviction candidate order
	// used by the media cache.
	LeastRecentlyPlayedCached(ctx context.Context, limit int) ([]types.Track, error)

	// InsertPlannerTrace appends a best-effort planner-call trace. Callers
	// should log, not abort, on error.
	InsertPlannerTrace(ctx context.Context, t types.PlannerTrace) error

	// RecentTraces returns the most recent limit planner traces for
	// sessionID, most recent first.
	RecentTraces(ctx context.Context, sessionID string, limit int) ([]types.PlannerTrace, error)
}
