package planning

import (
	"context"
	"fmt"

	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/transition"
	"github.com/airwavefm/aidj/pkg/types"
)

// RunBootstrap executes the bootstrap shape exactly once, at scheduler
// start: select_initial → ensure_cached → persist_metadata →
// write_intro_script → synthesize_voice → render_bootstrap_segment →
// persist_segment_and_history → emit_ready.
func (g *Graph) RunBootstrap(ctx context.Context, sessionID string, userCtx types.UserContext, queue *segment.Queue) (types.Segment, error) {
	selection, err := g.selectTrack(ctx, sessionID, "select_initial", userCtx)
	if err != nil {
		return types.Segment{}, err
	}

	cached, err := g.ensureCached(ctx, selection.TrackID)
	if err != nil {
		return types.Segment{}, err
	}

	g.persistMetadata(ctx, cached.Track.ID, cached.Track.Artist, cached.Track.Title)

	script := g.writeScript(ctx, sessionID, "write_intro_script",
		"Write a short, warm on-air welcome to open the broadcast, naming the upcoming track naturally if it fits.",
		userCtx)
	voice := g.synthesizeVoice(ctx, script)

	bootstrapPlan := transition.BuildBootstrap(transition.BootstrapInput{
		DurationB:     cached.Track.Duration,
		BEndBuffer:    g.Audio.BEndBuffer,
		Overlap:       g.Audio.Overlap,
		VoiceDuration: voice.Duration,
	})

	rendered, err := g.renderBootstrapSegment(ctx, sessionID, 0, cached.Track.LocalPath, voice.Path, bootstrapPlan, voice.Duration)
	if err != nil {
		return types.Segment{}, err
	}
	writeBootstrapSidecar(rendered.Path, bootstrapPlan, rendered.Duration, voice.Duration)

	seg, err := g.persistSegmentAndHistory(ctx, sessionID, cached.Track.ID, rendered.Path, 0, rendered.Duration, voice.Path != "", "")
	if err != nil {
		return types.Segment{}, err
	}

	if err := g.emitReady(ctx, queue, seg); err != nil {
		return types.Segment{}, fmt.Errorf("planning: run_bootstrap: %w", err)
	}
	return seg, nil
}
