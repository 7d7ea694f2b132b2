package planning

import (
	"context"

	"github.com/airwavefm/aidj/pkg/provider/metadata"
)

// persistMetadata implements the bootstrap shape's persist_metadata stage.
// select_initial already upserts a fresh search hit's track and features
// together (see select.go's searchFreshCandidates), so this stage's only
// remaining job is to backfill features for a cached candidate that was
// never looked up through MP (e.g. seeded directly into the catalog).
// Failure to backfill is logged, not propagated: a missing Features row
// only degrades mood-vector ranking for future selections, it does not
// block this invocation.
func (g *Graph) persistMetadata(ctx context.Context, trackID, artist, title string) {
	existing, err := g.Store.GetFeatures(ctx, trackID)
	if err != nil {
		g.Log.Warn("planning: persist_metadata: get features failed", "track_id", trackID, "error", err)
		return
	}
	if existing != nil {
		return
	}

	res, err := g.Metadata.Lookup(ctx, metadata.Query{Artist: artist, Title: title})
	if err != nil {
		g.Log.Debug("planning: persist_metadata: no features available to backfill", "track_id", trackID, "error", err)
		return
	}
	res.Features.TrackID = trackID
	if err := g.Store.UpsertFeatures(ctx, res.Features); err != nil {
		g.Log.Warn("planning: persist_metadata: upsert features failed", "track_id", trackID, "error", err)
	}
}
