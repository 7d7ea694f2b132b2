package planning

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/fge"
	"github.com/airwavefm/aidj/pkg/transition"
	"github.com/airwavefm/aidj/pkg/types"
)

// renderedSegment is a render stage's result: a finished audio file plus the
// duration the Filter-Graph Executor actually measured.
type renderedSegment struct {
	Path     string
	Duration time.Duration
}

// renderTransitionSegment implements the render_transition_segment stage: it
// assembles the atrim/adelay preprocessing for A and B, the transition
// shaping graph from the Transition Library, and (if a voice clip exists) a
// final mix of the ducked music bed with the voice, then hands the whole
// graph to the Filter-Graph Executor.
func (g *Graph) renderTransitionSegment(ctx context.Context, sessionID string, index int, pathA, pathB, voicePath string, plan transition.SteadyPlan, kind types.TransitionKind) (renderedSegment, error) {
	voiced := voicePath != ""

	gainA, gainB, err := g.normalizationGains(ctx, pathA, pathB)
	if err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("render_transition_segment: %w", err))
	}

	inputs := []string{pathA, pathB}
	chains := []string{
		fmt.Sprintf("[0:a]atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS,volume=volume=%.3fdB[a]",
			fseconds(plan.StartInA), fseconds(plan.LeadInLen), gainA),
		fmt.Sprintf("[1:a]atrim=start=0:duration=%s,asetpts=PTS-STARTPTS,volume=volume=%.3fdB,adelay=%s[b]",
			fseconds(plan.TrimBEnd), gainB, adelayArg(plan.DelayB)),
	}
	if voiced {
		inputs = append(inputs, voicePath)
		chains = append(chains, fmt.Sprintf("[2:a]adelay=%s[voice]", adelayArg(plan.VoiceDelay)))
	}

	transitionGraph, err := transition.BuildGraph(kind, transition.GraphInputs{
		A: "a", B: "b", Out: "mix", Voice: "voice", Voiced: voiced,
	}, plan, g.mixParams())
	if err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("render_transition_segment: build transition graph: %w", err))
	}
	chains = append(chains, transitionGraph)

	musicOut := "mix"
	if voiced && g.Audio.DuckLevel > 0 {
		musicOut = "mix_duck"
	}
	if voiced {
		chains = append(chains, fmt.Sprintf("[%s][voice]amix=inputs=2:duration=longest:dropout_transition=0,alimiter=limit=0.95[final]", musicOut))
	} else {
		chains = append(chains, fmt.Sprintf("[%s]alimiter=limit=0.95[final]", musicOut))
	}

	outPath := g.segmentOutputPath(sessionID, index)
	return g.runGraph(ctx, inputs, chains, outPath, "render_transition_segment")
}

// renderBootstrapSegment implements the render_bootstrap_segment stage: the
// voice intro (if any) fading out into the body of B, with no A track.
func (g *Graph) renderBootstrapSegment(ctx context.Context, sessionID string, index int, pathB, voicePath string, plan transition.BootstrapPlan, voiceDuration time.Duration) (renderedSegment, error) {
	voiced := voicePath != ""

	gainB, err := g.normalizationGain(ctx, pathB)
	if err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("render_bootstrap_segment: %w", err))
	}

	var inputs []string
	var chains []string
	bIdx := 0
	if voiced {
		inputs = append(inputs, voicePath)
		fadeStart := voiceDuration - plan.VoiceFadeOut
		if fadeStart < 0 {
			fadeStart = 0
		}
		chains = append(chains, fmt.Sprintf("[0:a]afade=t=out:st=%s:d=%s[voice]",
			fseconds(fadeStart), fseconds(plan.VoiceFadeOut)))
		bIdx = 1
	}
	inputs = append(inputs, pathB)
	chains = append(chains, fmt.Sprintf("[%d:a]atrim=start=0:duration=%s,asetpts=PTS-STARTPTS,volume=volume=%.3fdB,adelay=%s[b]",
		bIdx, fseconds(plan.BTrim), gainB, adelayArg(plan.BStart)))

	if voiced {
		chains = append(chains, "[voice][b]amix=inputs=2:duration=longest:dropout_transition=0,alimiter=limit=0.95[final]")
	} else {
		chains = append(chains, "[b]alimiter=limit=0.95[final]")
	}

	outPath := g.segmentOutputPath(sessionID, index)
	return g.runGraph(ctx, inputs, chains, outPath, "render_bootstrap_segment")
}

// targetLUFS returns the configured loudness normalization target, falling
// back to transition.DefaultTargetLUFS when the Graph was built without one.
func (g *Graph) targetLUFS() float64 {
	if g.Audio.TargetLUFS != 0 {
		return g.Audio.TargetLUFS
	}
	return transition.DefaultTargetLUFS
}

// normalizationGain probes path's integrated loudness and returns the static
// volume gain, in dB, that brings it to the configured TARGET_LUFS.
func (g *Graph) normalizationGain(ctx context.Context, path string) (float64, error) {
	measured, err := g.FGE.ProbeLoudness(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("probe loudness %s: %w", path, err)
	}
	return g.targetLUFS() - measured, nil
}

// normalizationGains probes both A and B ahead of the transition/duck, per
// spec.md §4.1's normalization step.
func (g *Graph) normalizationGains(ctx context.Context, pathA, pathB string) (gainA, gainB float64, err error) {
	gainA, err = g.normalizationGain(ctx, pathA)
	if err != nil {
		return 0, 0, err
	}
	gainB, err = g.normalizationGain(ctx, pathB)
	if err != nil {
		return 0, 0, err
	}
	return gainA, gainB, nil
}

// mixParams assembles the Transition Library's mix-shaping parameters from
// the Graph's configured audio settings.
func (g *Graph) mixParams() transition.MixParams {
	return transition.MixParams{
		DuckLevel:       g.Audio.DuckLevel,
		BassCrossoverHz: g.Audio.BassCrossoverFreq,
	}
}

// runGraph joins chains, validates the result against the Filter-Graph
// Executor's vocabulary and length cap, and renders it.
func (g *Graph) runGraph(ctx context.Context, inputs []string, chains []string, outPath, stage string) (renderedSegment, error) {
	graph := joinChains(chains)
	if err := fge.Validate(graph); err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("%s: %w", stage, err))
	}
	if g.MaxGraphTextLength > 0 && len(graph) > g.MaxGraphTextLength {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("%s: graph length %d exceeds configured max %d", stage, len(graph), g.MaxGraphTextLength))
	}

	if err := g.FGE.Run(ctx, fge.RunRequest{
		Inputs:        inputs,
		FilterComplex: graph,
		OutputMap:     "[final]",
		OutputPath:    outPath,
		BitrateKbps:   g.Audio.BitrateKbps,
	}); err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("%s: %w", stage, err))
	}

	duration, err := g.FGE.ProbeDuration(ctx, outPath)
	if err != nil {
		return renderedSegment{}, fail(FailureRenderFailed, fmt.Errorf("%s: probe rendered output: %w", stage, err))
	}
	return renderedSegment{Path: outPath, Duration: duration}, nil
}

func (g *Graph) segmentOutputPath(sessionID string, index int) string {
	return filepath.Join(g.CacheDir, fmt.Sprintf("segment-%s-%04d.mp3", sessionID, index))
}

func joinChains(chains []string) string {
	out := ""
	for i, c := range chains {
		if i > 0 {
			out += ";"
		}
		out += c
	}
	return out
}

func fseconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func adelayArg(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d|%d", ms, ms)
}
