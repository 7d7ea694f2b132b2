// Package mediacache implements the Media Cache (MC): a byte-budgeted
// eviction policy over audio files already recorded in the catalog, grounded
// on the Python original's cache_manager.py. Tracks are evicted in the
// ascending last-played order returned by the catalog's
// LeastRecentlyPlayedCached; play count does not affect the eviction order.
package mediacache

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/airwavefm/aidj/pkg/catalog"
)

// Stats mirrors cache_manager.py's get_cache_stats: how much of the
// configured byte budget is currently in use.
type Stats struct {
	UsedBytes  int64
	LimitBytes int64
	Pct        float64
}

// Cache enforces a byte budget over the catalog's cached tracks, evicting the
// least recently played first when the budget is exceeded.
type Cache struct {
	store      catalog.Store
	limitBytes int64
	log        *slog.Logger
}

// New returns a Cache that enforces limitBytes against store.
func New(store catalog.Store, limitBytes int64, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{store: store, limitBytes: limitBytes, log: log}
}

// RecordFetch records that trackID's audio file now lives at path and is
// filesizeBytes large, then enforces the cache limit — mirroring the
// original's pattern of checking the budget immediately after every
// download.
func (c *Cache) RecordFetch(ctx context.Context, trackID, path string, filesizeBytes int64) error {
	if err := c.store.SetLocalPath(ctx, trackID, path, filesizeBytes); err != nil {
		return fmt.Errorf("media cache: record fetch: %w", err)
	}
	return c.EnforceLimit(ctx)
}

// EnforceLimit evicts cached tracks, least recently played first, until the
// catalog's total cached bytes is at or under the configured limit. Eviction
// deletes the on-disk file and clears the track's LocalPath/FilesizeBytes;
// the track row itself is never deleted.
func (c *Cache) EnforceLimit(ctx context.Context) error {
	if c.limitBytes <= 0 {
		return nil // unbudgeted: never evict
	}

	total, err := c.store.TotalCachedBytes(ctx)
	if err != nil {
		return fmt.Errorf("media cache: enforce limit: %w", err)
	}
	if total <= c.limitBytes {
		return nil
	}

	// Pull a batch of eviction candidates; re-query if a single pass isn't
	// enough to get back under budget (a very large file may require more
	// than the batch size).
	const batchSize = 25
	for total > c.limitBytes {
		candidates, err := c.store.LeastRecentlyPlayedCached(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("media cache: enforce limit: list candidates: %w", err)
		}
		if len(candidates) == 0 {
			c.log.Warn("media cache: cannot reach byte budget, no more evictable tracks",
				"used_bytes", total, "limit_bytes", c.limitBytes)
			return nil
		}

		for _, t := range candidates {
			if total <= c.limitBytes {
				break
			}
			if err := os.Remove(t.LocalPath); err != nil && !os.IsNotExist(err) {
				c.log.Warn("media cache: evict: failed to remove file",
					"track_id", t.ID, "path", t.LocalPath, "error", err)
			}
			if err := c.store.SetLocalPath(ctx, t.ID, "", 0); err != nil {
				return fmt.Errorf("media cache: enforce limit: clear local path: %w", err)
			}
			total -= t.FilesizeBytes
			c.log.Info("media cache: evicted track", "track_id", t.ID, "freed_bytes", t.FilesizeBytes)
		}
	}
	return nil
}

// Stats returns the current cache usage, mirroring the original's
// get_cache_stats.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	used, err := c.store.TotalCachedBytes(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("media cache: stats: %w", err)
	}
	pct := 0.0
	if c.limitBytes > 0 {
		pct = float64(used) / float64(c.limitBytes)
	}
	return Stats{UsedBytes: used, LimitBytes: c.limitBytes, Pct: pct}, nil
}
