// Package metadata defines the Metadata Provider (MP) capability: looking up
// a track's canonical metadata and derived audio features ahead of (or in
// lieu of) downloading the audio itself.
//
// Implementations must be safe for concurrent use.
package metadata

import (
	"context"

	"github.com/airwavefm/aidj/pkg/types"
)

// Query identifies a track to look up. At least one of Title or Artist must
// be non-empty.
type Query struct {
	Title  string
	Artist string
}

// Result bundles a track's catalog-ready metadata with its derived audio
// features, as returned by a single provider lookup.
type Result struct {
	Track    types.Track
	Features types.Features
}

// Provider is the abstraction over any music-metadata backend (a label/
// aggregator API, a local tag index, or a mock).
type Provider interface {
	// Lookup resolves q to the best-matching track's metadata and features.
	// Returns an error wrapping [ErrNotFound] when no match exists.
	Lookup(ctx context.Context, q Query) (Result, error)
}

// ErrNotFound is returned (wrapped) when a Query matches no known track.
var ErrNotFound = notFoundErr{}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "metadata: no matching track" }
