// Package mock provides a test double for the metadata.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/airwavefm/aidj/pkg/provider/metadata"
)

// LookupCall records a single invocation of Lookup.
type LookupCall struct {
	Query metadata.Query
}

// Provider is a mock implementation of metadata.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Results is returned by Lookup, keyed by Query. A query with no entry
	// returns ErrNotFound unless Err is set.
	Results map[metadata.Query]metadata.Result

	// Err, if non-nil, is returned as the error from Lookup regardless of
	// Results.
	Err error

	// --- Call records ---

	LookupCalls []LookupCall
}

var _ metadata.Provider = (*Provider)(nil)

// Lookup records the call and returns the configured result.
func (p *Provider) Lookup(_ context.Context, q metadata.Query) (metadata.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LookupCalls = append(p.LookupCalls, LookupCall{Query: q})
	if p.Err != nil {
		return metadata.Result{}, p.Err
	}
	if r, ok := p.Results[q]; ok {
		return r, nil
	}
	return metadata.Result{}, metadata.ErrNotFound
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LookupCalls = nil
}
