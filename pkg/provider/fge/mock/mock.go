// Package mock provides a test double for the fge.Provider interface.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/fge"
)

// RunCall records a single invocation of Run.
type RunCall struct {
	Ctx context.Context
	Req fge.RunRequest
}

// Provider is a mock implementation of fge.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ProbeDurationResult is returned by ProbeDuration, keyed by path. A path
	// with no entry falls back to ProbeDurationDefault.
	ProbeDurationResult map[string]time.Duration

	// ProbeDurationDefault is returned when ProbeDurationResult has no entry
	// for the probed path.
	ProbeDurationDefault time.Duration

	// ProbeDurationErr, if non-nil, is returned as the error from ProbeDuration.
	ProbeDurationErr error

	// ProbeLoudnessResult is returned by ProbeLoudness.
	ProbeLoudnessResult float64

	// ProbeLoudnessErr, if non-nil, is returned as the error from ProbeLoudness.
	ProbeLoudnessErr error

	// RunErr, if non-nil, is returned as the error from Run.
	RunErr error

	// --- Call records ---

	ProbeDurationCalls []string
	ProbeLoudnessCalls []string
	RunCalls           []RunCall
}

var _ fge.Provider = (*Provider)(nil)

// ProbeDuration records the call and returns the configured result.
func (p *Provider) ProbeDuration(_ context.Context, path string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeDurationCalls = append(p.ProbeDurationCalls, path)
	if p.ProbeDurationErr != nil {
		return 0, p.ProbeDurationErr
	}
	if d, ok := p.ProbeDurationResult[path]; ok {
		return d, nil
	}
	return p.ProbeDurationDefault, nil
}

// ProbeLoudness records the call and returns the configured result.
func (p *Provider) ProbeLoudness(_ context.Context, path string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeLoudnessCalls = append(p.ProbeLoudnessCalls, path)
	return p.ProbeLoudnessResult, p.ProbeLoudnessErr
}

// Run records the call and returns RunErr.
func (p *Provider) Run(ctx context.Context, req fge.RunRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RunCalls = append(p.RunCalls, RunCall{Ctx: ctx, Req: req})
	return p.RunErr
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeDurationCalls = nil
	p.ProbeLoudnessCalls = nil
	p.RunCalls = nil
}
