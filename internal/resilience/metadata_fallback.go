package resilience

import (
	"context"

	"github.com/airwavefm/aidj/pkg/provider/metadata"
)

// MetadataFallback implements [metadata.Provider] with automatic failover
// across multiple metadata backends. Each backend has its own circuit
// breaker.
type MetadataFallback struct {
	group *FallbackGroup[metadata.Provider]
}

// Compile-time interface assertion.
var _ metadata.Provider = (*MetadataFallback)(nil)

// NewMetadataFallback creates a [MetadataFallback] with primary as the
// preferred backend.
func NewMetadataFallback(primary metadata.Provider, primaryName string, cfg FallbackConfig) *MetadataFallback {
	return &MetadataFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional metadata backend as a fallback.
func (f *MetadataFallback) AddFallback(name string, provider metadata.Provider) {
	f.group.AddFallback(name, provider)
}

// Lookup resolves q via the first healthy provider, failing over to the
// next on error.
func (f *MetadataFallback) Lookup(ctx context.Context, q metadata.Query) (metadata.Result, error) {
	return ExecuteWithResult(f.group, func(p metadata.Provider) (metadata.Result, error) {
		return p.Lookup(ctx, q)
	})
}
