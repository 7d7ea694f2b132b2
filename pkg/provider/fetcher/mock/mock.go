// Package mock provides a test double for the fetcher.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/airwavefm/aidj/pkg/provider/fetcher"
)

// FetchCall records a single invocation of Fetch.
type FetchCall struct {
	Query   fetcher.Query
	DestDir string
}

// Provider is a mock implementation of fetcher.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Results is returned by Fetch, keyed by Query. A query with no entry
	// returns ErrNotFound unless Err is set.
	Results map[fetcher.Query]fetcher.Result

	// Err, if non-nil, is returned as the error from Fetch regardless of
	// Results.
	Err error

	// --- Call records ---

	FetchCalls []FetchCall
}

var _ fetcher.Provider = (*Provider)(nil)

// Fetch records the call and returns the configured result.
func (p *Provider) Fetch(_ context.Context, q fetcher.Query, destDir string) (fetcher.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchCalls = append(p.FetchCalls, FetchCall{Query: q, DestDir: destDir})
	if p.Err != nil {
		return fetcher.Result{}, p.Err
	}
	if r, ok := p.Results[q]; ok {
		return r, nil
	}
	return fetcher.Result{}, fetcher.ErrNotFound
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchCalls = nil
}
