package resilience

import (
	"context"

	"github.com/airwavefm/aidj/pkg/provider/fetcher"
)

// FetcherFallback implements [fetcher.Provider] with automatic failover
// across multiple track-download backends. Each backend has its own circuit
// breaker; when the primary fails or its breaker is open, the next healthy
// fallback is tried.
type FetcherFallback struct {
	group *FallbackGroup[fetcher.Provider]
}

// Compile-time interface assertion.
var _ fetcher.Provider = (*FetcherFallback)(nil)

// NewFetcherFallback creates a [FetcherFallback] with primary as the
// preferred backend.
func NewFetcherFallback(primary fetcher.Provider, primaryName string, cfg FallbackConfig) *FetcherFallback {
	return &FetcherFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional fetch backend as a fallback.
func (f *FetcherFallback) AddFallback(name string, provider fetcher.Provider) {
	f.group.AddFallback(name, provider)
}

// Fetch downloads q to destDir via the first healthy provider, failing over
// to the next on error.
func (f *FetcherFallback) Fetch(ctx context.Context, q fetcher.Query, destDir string) (fetcher.Result, error) {
	return ExecuteWithResult(f.group, func(p fetcher.Provider) (fetcher.Result, error) {
		return p.Fetch(ctx, q, destDir)
	})
}
