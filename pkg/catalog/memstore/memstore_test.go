package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/types"
)

func TestUpsertAndGetTrack(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertTrack(ctx, types.Track{ID: "t1", Title: "Song", LocalPath: "/music/t1.mp3"}); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	got, err := s.GetTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if got == nil || got.Title != "Song" {
		t.Fatalf("GetTrack = %+v, want Title=Song", got)
	}

	missing, err := s.GetTrack(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetTrack(missing) = %+v, %v, want nil, nil", missing, err)
	}
}

func TestCachedCandidatesExcludesAndFiltersUncached(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTrack(ctx, types.Track{ID: "cached", LocalPath: "/a"})
	s.UpsertTrack(ctx, types.Track{ID: "uncached"})
	s.UpsertTrack(ctx, types.Track{ID: "excluded", LocalPath: "/b"})

	got, err := s.CachedCandidates(ctx, catalog.CandidateQuery{Exclude: []string{"excluded"}})
	if err != nil {
		t.Fatalf("CachedCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != "cached" {
		t.Fatalf("CachedCandidates = %+v, want only 'cached'", got)
	}
}

func TestCachedCandidatesRanksByMoodVector(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTrack(ctx, types.Track{ID: "near", LocalPath: "/a"})
	s.UpsertTrack(ctx, types.Track{ID: "far", LocalPath: "/b"})
	s.UpsertFeatures(ctx, types.Features{TrackID: "near", Vector: []float32{1, 0}})
	s.UpsertFeatures(ctx, types.Features{TrackID: "far", Vector: []float32{0, 1}})

	got, err := s.CachedCandidates(ctx, catalog.CandidateQuery{MoodVector: []float32{1, 0}})
	if err != nil {
		t.Fatalf("CachedCandidates: %v", err)
	}
	if len(got) != 2 || got[0].ID != "near" {
		t.Fatalf("CachedCandidates = %+v, want 'near' ranked first", got)
	}
}

func TestPlayHistoryOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()
	for i, id := range []string{"t1", "t2", "t3"} {
		s.InsertPlayHistory(ctx, types.PlayHistoryEntry{
			SessionID: "sess", TrackID: id, StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got, err := s.RecentPlays(ctx, "sess", 2)
	if err != nil {
		t.Fatalf("RecentPlays: %v", err)
	}
	if len(got) != 2 || got[0].TrackID != "t3" || got[1].TrackID != "t2" {
		t.Fatalf("RecentPlays = %+v, want [t3, t2]", got)
	}
}

func TestIncrementPlayCountAndLeastRecentlyPlayed(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTrack(ctx, types.Track{ID: "stale", LocalPath: "/a"})
	s.UpsertTrack(ctx, types.Track{ID: "fresh", LocalPath: "/b"})

	s.IncrementPlayCount(ctx, "fresh", time.Now())
	s.IncrementPlayCount(ctx, "stale", time.Now().Add(-time.Hour))

	got, err := s.LeastRecentlyPlayedCached(ctx, 1)
	if err != nil {
		t.Fatalf("LeastRecentlyPlayedCached: %v", err)
	}
	if len(got) != 1 || got[0].ID != "stale" {
		t.Fatalf("LeastRecentlyPlayedCached = %+v, want 'stale' first", got)
	}
}

func TestTotalCachedBytes(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTrack(ctx, types.Track{ID: "a", LocalPath: "/a", FilesizeBytes: 100})
	s.UpsertTrack(ctx, types.Track{ID: "b", LocalPath: "/b", FilesizeBytes: 50})
	s.UpsertTrack(ctx, types.Track{ID: "c", FilesizeBytes: 9999}) // not cached

	total, err := s.TotalCachedBytes(ctx)
	if err != nil {
		t.Fatalf("TotalCachedBytes: %v", err)
	}
	if total != 150 {
		t.Errorf("TotalCachedBytes = %d, want 150", total)
	}
}

func TestRecentTracesScopedToSession(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.InsertPlannerTrace(ctx, types.PlannerTrace{SessionID: "sess-a", Stage: "select_initial"})
	s.InsertPlannerTrace(ctx, types.PlannerTrace{SessionID: "sess-b", Stage: "select_initial"})
	s.InsertPlannerTrace(ctx, types.PlannerTrace{SessionID: "sess-a", Stage: "plan_transition"})

	got, err := s.RecentTraces(ctx, "sess-a", 10)
	if err != nil {
		t.Fatalf("RecentTraces: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentTraces = %+v, want 2 entries for sess-a", got)
	}
}
