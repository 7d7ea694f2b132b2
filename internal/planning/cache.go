package planning

import (
	"context"
	"fmt"

	"github.com/airwavefm/aidj/pkg/provider/fetcher"
	"github.com/airwavefm/aidj/pkg/types"
)

// cachedTrack is the ensure_cached stage's result: a track row guaranteed to
// have a readable LocalPath and a known Duration.
type cachedTrack struct {
	Track types.Track
}

// ensureCached implements the ensure_cached stage for a single track.
// Calling it twice in a row for the same trackID is idempotent: a track
// already carrying a LocalPath is returned as-is without invoking the Track
// Fetcher again, per spec.md §8's idempotence law.
func (g *Graph) ensureCached(ctx context.Context, trackID string) (cachedTrack, error) {
	track, err := g.Store.GetTrack(ctx, trackID)
	if err != nil {
		return cachedTrack{}, fmt.Errorf("planning: ensure_cached: get track: %w", err)
	}
	if track == nil {
		return cachedTrack{}, fail(FailureNoCandidate, fmt.Errorf("ensure_cached: track %q not found in catalog", trackID))
	}
	if track.Cached() {
		return cachedTrack{Track: *track}, nil
	}

	result, err := g.Fetcher.Fetch(ctx, fetcher.Query{Artist: track.Artist, Title: track.Title}, g.CacheDir)
	if err != nil {
		return cachedTrack{}, fail(FailureFetchFailed, fmt.Errorf("ensure_cached: fetch %q by %q: %w", track.Title, track.Artist, err))
	}

	duration := result.Duration
	if probed, probeErr := g.FGE.ProbeDuration(ctx, result.Path); probeErr == nil && probed > 0 {
		duration = probed
	}
	track.Duration = duration
	track.LocalPath = result.Path
	track.FilesizeBytes = result.FilesizeBytes

	// UpsertTrack must land before RecordFetch: RecordFetch (via
	// SetLocalPath) is the authority on the cache-tracked LocalPath, so
	// writing the full row first and letting RecordFetch follow keeps the
	// two calls from racing to stomp each other's view of LocalPath.
	if err := g.Store.UpsertTrack(ctx, *track); err != nil {
		g.Log.Warn("planning: ensure_cached: upsert track failed", "track_id", track.ID, "error", err)
	}
	if err := g.Cache.RecordFetch(ctx, track.ID, result.Path, result.FilesizeBytes); err != nil {
		return cachedTrack{}, fail(FailureFetchFailed, fmt.Errorf("ensure_cached: record fetch: %w", err))
	}

	return cachedTrack{Track: *track}, nil
}
