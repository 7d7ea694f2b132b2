// Package memstore is an in-memory [catalog.Store] used by tests and by any
// deployment that does not need the catalog to survive a restart. It trades
// the postgres backend's durability and pgvector ranking for zero setup: mood
// ranking falls back to a linear cosine-distance scan instead of an HNSW
// index, which is fine at the catalog sizes exercised by tests.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/types"
)

var _ catalog.Store = (*Store)(nil)

// Store is a concurrency-safe, in-memory [catalog.Store].
type Store struct {
	mu sync.Mutex

	tracks   map[string]types.Track
	features map[string]types.Features
	lyrics   map[string]types.LyricsAnalysis
	sessions map[string]types.Session
	plays    []types.PlayHistoryEntry
	segments []types.Segment
	traces   []types.PlannerTrace

	nextPlayID    int64
	nextSegmentID int64
	nextTraceID   int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tracks:   make(map[string]types.Track),
		features: make(map[string]types.Features),
		lyrics:   make(map[string]types.LyricsAnalysis),
		sessions: make(map[string]types.Session),
	}
}

func (s *Store) GetTrack(_ context.Context, id string) (*types.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpsertTrack(_ context.Context, t types.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[t.ID] = t
	return nil
}

func (s *Store) SetLocalPath(_ context.Context, trackID, path string, filesizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tracks[trackID]
	t.ID = trackID
	t.LocalPath = path
	t.FilesizeBytes = filesizeBytes
	s.tracks[trackID] = t
	return nil
}

func (s *Store) GetFeatures(_ context.Context, trackID string) (*types.Features, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.features[trackID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *Store) UpsertFeatures(_ context.Context, f types.Features) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features[f.TrackID] = f
	return nil
}

func (s *Store) GetLyrics(_ context.Context, trackID string) (*types.LyricsAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lyrics[trackID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) UpsertLyrics(_ context.Context, l types.LyricsAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lyrics[l.TrackID] = l
	return nil
}

func (s *Store) CachedCandidates(_ context.Context, q catalog.CandidateQuery) ([]types.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make(map[string]bool, len(q.Exclude))
	for _, id := range q.Exclude {
		excluded[id] = true
	}

	type scored struct {
		track    types.Track
		distance float64
	}
	var candidates []scored
	for _, t := range s.tracks {
		if !t.Cached() || excluded[t.ID] {
			continue
		}
		dist := 0.0
		if len(q.MoodVector) > 0 {
			if f, ok := s.features[t.ID]; ok && len(f.Vector) > 0 {
				dist = cosineDistance(q.MoodVector, f.Vector)
			} else {
				dist = math.Inf(1)
			}
		}
		candidates = append(candidates, scored{t, dist})
	}

	if len(q.MoodVector) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	} else {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].track.LastPlayedAt.Before(candidates[j].track.LastPlayedAt)
		})
	}

	limit := q.Limit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]types.Track, 0, limit)
	for _, c := range candidates[:limit] {
		out = append(out, c.track)
	}
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, sess types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) EndSession(_ context.Context, sessionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[sessionID]
	sess.EndedAt = endedAt
	s.sessions[sessionID] = sess
	return nil
}

func (s *Store) RecentPlays(_ context.Context, sessionID string, n int) ([]types.PlayHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []types.PlayHistoryEntry
	for i := len(s.plays) - 1; i >= 0 && len(matched) < n; i-- {
		if s.plays[i].SessionID == sessionID {
			matched = append(matched, s.plays[i])
		}
	}
	return matched, nil
}

func (s *Store) GlobalRecentPlays(_ context.Context, n int) ([]types.PlayHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.plays) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.PlayHistoryEntry, 0, len(s.plays)-start)
	for i := len(s.plays) - 1; i >= start; i-- {
		out = append(out, s.plays[i])
	}
	return out, nil
}

func (s *Store) InsertPlayHistory(_ context.Context, e types.PlayHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPlayID++
	e.ID = s.nextPlayID
	s.plays = append(s.plays, e)
	return nil
}

func (s *Store) IncrementPlayCount(_ context.Context, trackID string, playedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tracks[trackID]
	t.PlayCount++
	t.LastPlayedAt = playedAt
	s.tracks[trackID] = t
	return nil
}

func (s *Store) InsertSegment(_ context.Context, seg types.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSegmentID++
	seg.ID = s.nextSegmentID
	s.segments = append(s.segments, seg)
	return nil
}

func (s *Store) TotalCachedBytes(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, t := range s.tracks {
		if t.Cached() {
			total += t.FilesizeBytes
		}
	}
	return total, nil
}

func (s *Store) LeastRecentlyPlayedCached(_ context.Context, limit int) ([]types.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cached []types.Track
	for _, t := range s.tracks {
		if t.Cached() {
			cached = append(cached, t)
		}
	}
	sort.Slice(cached, func(i, j int) bool { return cached[i].LastPlayedAt.Before(cached[j].LastPlayedAt) })
	if limit > 0 && limit < len(cached) {
		cached = cached[:limit]
	}
	return cached, nil
}

func (s *Store) InsertPlannerTrace(_ context.Context, t types.PlannerTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTraceID++
	t.ID = s.nextTraceID
	t.CreatedAt = time.Now()
	s.traces = append(s.traces, t)
	return nil
}

func (s *Store) RecentTraces(_ context.Context, sessionID string, limit int) ([]types.PlannerTrace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.PlannerTrace
	for i := len(s.traces) - 1; i >= 0 && len(out) < limit; i-- {
		if s.traces[i].SessionID == sessionID {
			out = append(out, s.traces[i])
		}
	}
	return out, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return math.Inf(1)
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
