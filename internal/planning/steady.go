package planning

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/transition"
	"github.com/airwavefm/aidj/pkg/types"
)

// RunSteady executes the steady shape once per desired segment:
// plan_next_track → ensure_cached(A,B) → fetch_if_needed(B) →
// (plan_transition ∥ write_transition_script) → synthesize_voice →
// render_transition_segment → persist_segment_and_history → emit_ready.
//
// songA is the track_id most recently entering rotation (history.most_recent
// per spec.md §4.4); index is the strictly-increasing segment index the
// scheduler assigns this invocation.
func (g *Graph) RunSteady(ctx context.Context, sessionID, songA string, index int, userCtx types.UserContext, queue *segment.Queue) (types.Segment, error) {
	selection, err := g.selectTrack(ctx, sessionID, "plan_next_track", userCtx)
	if err != nil {
		return types.Segment{}, err
	}

	trackA, err := g.ensureCached(ctx, songA)
	if err != nil {
		return types.Segment{}, err
	}
	// ensure_cached(B) doubles as fetch_if_needed(B): both are the same
	// idempotent "is it local, if not fetch it" operation described in
	// spec.md §4.2 and §4.5.
	trackB, err := g.ensureCached(ctx, selection.TrackID)
	if err != nil {
		return types.Segment{}, err
	}

	// (plan_transition ∥ write_transition_script): the only fork in the
	// graph. Both stages are side-effect-free on shared state except their
	// own planner-trace inserts, so they run concurrently and join here.
	var (
		transitionChoiceResult transitionChoice
		script                 string
	)
	var eg errgroup.Group
	eg.Go(func() error {
		transitionChoiceResult = g.planTransition(ctx, sessionID, trackA.Track.Duration, trackB.Track.Duration)
		return nil
	})
	eg.Go(func() error {
		script = g.writeScript(ctx, sessionID, "write_transition_script",
			fmt.Sprintf("Write a short, natural on-air transition line moving from %q to %q.", trackA.Track.Title, trackB.Track.Title),
			userCtx)
		return nil
	})
	_ = eg.Wait() // neither goroutine returns a non-nil error; failures recover to defaults internally.

	voice := g.synthesizeVoice(ctx, script)

	steadyPlan := transition.BuildSteady(transition.SteadyInput{
		DurationA:     trackA.Track.Duration,
		DurationB:     trackB.Track.Duration,
		Crossfade:     transitionChoiceResult.Crossfade,
		LeadIn:        g.Audio.LeadIn,
		BEndBuffer:    g.Audio.BEndBuffer,
		Overlap:       g.Audio.Overlap,
		TransAt:       transitionChoiceResult.TransAt,
		VoiceOffset:   transitionChoiceResult.VoiceOff,
		VoiceDuration: voice.Duration,
	})
	if steadyPlan.ClampedBelowFloor {
		g.Log.Warn("planning: t_trans_a clamped to 20s floor, rendering anyway",
			"session_id", sessionID, "track_a", trackA.Track.ID, "track_b", trackB.Track.ID)
	}

	rendered, err := g.renderTransitionSegment(ctx, sessionID, index, trackA.Track.LocalPath, trackB.Track.LocalPath, voice.Path, steadyPlan, transitionChoiceResult.Kind)
	if err != nil {
		return types.Segment{}, err
	}
	writeSteadySidecar(rendered.Path, steadyPlan, transitionChoiceResult.Kind, rendered.Duration, 0)

	seg, err := g.persistSegmentAndHistory(ctx, sessionID, trackB.Track.ID, rendered.Path, index, rendered.Duration, voice.Path != "", string(transitionChoiceResult.Kind.Normalize()))
	if err != nil {
		return types.Segment{}, err
	}

	if err := g.emitReady(ctx, queue, seg); err != nil {
		return types.Segment{}, fmt.Errorf("planning: run_steady: %w", err)
	}
	return seg, nil
}
