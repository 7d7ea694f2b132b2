// Package scheduler implements the Segment Scheduler (SS): the long-running
// loop that drives one Planning Graph invocation at a time, enforces the
// planning cooldown, and feeds rendered segments to the transport's Segment
// Queue.
//
// Grounded on backend/orchestration/loop.py's DJLoop: a single task that
// alternates between "is it time to plan" checks every two seconds and one
// blocking planning-graph invocation when it is.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airwavefm/aidj/internal/planning"
	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/types"
)

const (
	tickInterval = 2 * time.Second

	minCooldown = 3 * time.Second
	maxCooldown = 120 * time.Second

	bootstrapRetryDelay = 30 * time.Second

	// queueDepthGate is q_size: planning is suppressed while at least this
	// many segments are already queued, unless urgency bypasses the gate.
	queueDepthGate = 3
)

// Scheduler owns the steady-state decision loop described in spec.md §4.4.
// It is not safe to call Run more than once concurrently.
type Scheduler struct {
	graph *planning.Graph
	store catalog.Store
	queue *segment.Queue
	log   *slog.Logger

	userCtx types.UserContext

	mu              sync.Mutex
	sessionID       string
	segmentsPlanned int
	lastPlanAt      time.Time
	cooldown        time.Duration
	urgentRequested bool
}

// Option configures a Scheduler during construction.
type Option func(*Scheduler)

// WithLogger sets the structured logger used for loop diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithUserContext sets the listener context passed to every Planning Graph
// invocation.
func WithUserContext(u types.UserContext) Option {
	return func(s *Scheduler) { s.userCtx = u }
}

// New constructs a Scheduler. graph and queue must already be wired to the
// same capability providers and catalog store used elsewhere in the process.
func New(graph *planning.Graph, store catalog.Store, queue *segment.Queue, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:    graph,
		store:    store,
		queue:    queue,
		log:      slog.Default(),
		cooldown: minCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestMoreSegments implements the transport's urgency signal: it marks the
// next decision tick as urgent, bypassing both the cooldown timer and the
// queue-depth gate (spec.md §4.4, Open Question #3).
func (s *Scheduler) RequestMoreSegments() {
	s.mu.Lock()
	s.urgentRequested = true
	s.mu.Unlock()
}

// Run creates a new broadcast session row through the catalog store's
// CreateSession (an existing session is not resumed; a CreateSession error
// ends Run), retries the bootstrap
// invocation until it succeeds, then drives the steady loop until ctx is
// cancelled. It returns ctx's error on a clean shutdown.
func (s *Scheduler) Run(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.mu.Lock()
	s.sessionID = sessionID
	s.mu.Unlock()

	if err := s.store.CreateSession(ctx, types.Session{ID: sessionID, StartedAt: time.Now()}); err != nil {
		return fmt.Errorf("scheduler: create session: %w", err)
	}

	if err := s.runBootstrapUntilSuccess(ctx, sessionID); err != nil {
		return err
	}

	return s.steadyLoop(ctx, sessionID)
}

// runBootstrapUntilSuccess invokes the bootstrap Planning Graph repeatedly,
// sleeping 30s between failures, until one invocation produces a segment or
// ctx is cancelled.
func (s *Scheduler) runBootstrapUntilSuccess(ctx context.Context, sessionID string) error {
	for {
		seg, err := s.graph.RunBootstrap(ctx, sessionID, s.userCtx, s.queue)
		if err == nil {
			s.mu.Lock()
			s.segmentsPlanned++
			s.lastPlanAt = time.Now()
			s.mu.Unlock()
			s.log.Info("scheduler: bootstrap segment ready", "session_id", sessionID, "track_id", seg.TrackID)
			return nil
		}
		s.log.Warn("scheduler: bootstrap invocation failed, retrying", "session_id", sessionID, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bootstrapRetryDelay):
		}
	}
}

// steadyLoop implements the every-2-second decision in spec.md §4.4: plan iff
// the cooldown has elapsed (or urgency bypasses it) and the queue has room
// (or urgency bypasses that gate too).
func (s *Scheduler) steadyLoop(ctx context.Context, sessionID string) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.shouldPlan() {
				s.planOne(ctx, sessionID)
			}
		}
	}
}

// shouldPlan evaluates the plan-or-wait gate without holding the lock across
// the (potentially long) planning invocation that follows.
func (s *Scheduler) shouldPlan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cooldownElapsed := time.Since(s.lastPlanAt) >= s.cooldown
	queueHasRoom := s.queue.PeekLen() < queueDepthGate
	if s.urgentRequested {
		return true
	}
	return cooldownElapsed && queueHasRoom
}

// planOne runs one steady Planning Graph invocation, widening or resetting
// the cooldown based on the outcome.
func (s *Scheduler) planOne(ctx context.Context, sessionID string) {
	s.mu.Lock()
	s.urgentRequested = false
	index := s.segmentsPlanned
	s.mu.Unlock()

	history, err := s.store.RecentPlays(ctx, sessionID, 1)
	if err != nil || len(history) == 0 {
		s.log.Warn("scheduler: no recent play history, cannot determine song A", "session_id", sessionID, "error", err)
		s.widenCooldown()
		return
	}
	songA := history[0].TrackID

	seg, err := s.graph.RunSteady(ctx, sessionID, songA, index, s.userCtx, s.queue)
	if err != nil {
		s.log.Warn("scheduler: steady invocation failed", "session_id", sessionID, "index", index, "error", err)
		s.widenCooldown()
		return
	}

	s.mu.Lock()
	s.segmentsPlanned++
	s.lastPlanAt = time.Now()
	s.cooldown = minCooldown
	s.mu.Unlock()
	s.log.Info("scheduler: steady segment ready", "session_id", sessionID, "index", index, "track_id", seg.TrackID)
}

// widenCooldown applies the exponential backoff from spec.md §4.4:
// cooldown := min(120s, cooldown * 1.5).
func (s *Scheduler) widenCooldown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPlanAt = time.Now()
	widened := time.Duration(math.Round(float64(s.cooldown) * 1.5))
	if widened > maxCooldown {
		widened = maxCooldown
	}
	s.cooldown = widened
}

// Stats reports the scheduler's current planning state, for observability.
type Stats struct {
	SegmentsPlanned int
	Cooldown        time.Duration
	QueueDepth      int
	Urgent          bool
}

// Stats returns a snapshot of the scheduler's planning state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SegmentsPlanned: s.segmentsPlanned,
		Cooldown:        s.cooldown,
		QueueDepth:      s.queue.PeekLen(),
		Urgent:          s.urgentRequested,
	}
}
