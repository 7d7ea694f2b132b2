package transition

import (
	"strings"
	"testing"
	"time"

	"github.com/airwavefm/aidj/pkg/types"
)

func examplePlan() SteadyPlan {
	return BuildSteady(SteadyInput{
		DurationA:     210 * time.Second,
		DurationB:     200 * time.Second,
		Crossfade:     10 * time.Second,
		LeadIn:        12 * time.Second,
		BEndBuffer:    20 * time.Second,
		Overlap:       750 * time.Millisecond,
		VoiceOffset:   5 * time.Second,
		VoiceDuration: 4 * time.Second,
	})
}

func TestBuildGraph_BlendProducesValidGraph(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBlend, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "acrossfade") {
		t.Errorf("blend graph missing acrossfade: %s", g)
	}
	if !strings.HasSuffix(g, "[mix]") {
		t.Errorf("blend graph does not terminate at [mix]: %s", g)
	}
}

func TestBuildGraph_FilterSweepAliasesBlend(t *testing.T) {
	plan := examplePlan()
	blend, _ := BuildGraph(types.TransitionBlend, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	sweep, _ := BuildGraph(types.TransitionFilterSweep, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if blend != sweep {
		t.Errorf("filter_sweep should alias blend:\n blend=%s\n sweep=%s", blend, sweep)
	}
}

func TestBuildGraph_UnknownKindNormalizesToBlend(t *testing.T) {
	plan := examplePlan()
	blend, _ := BuildGraph(types.TransitionBlend, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	unknown, _ := BuildGraph(types.TransitionKind("nonsense"), GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if blend != unknown {
		t.Errorf("unrecognized kind should normalize to blend:\n blend=%s\n unknown=%s", blend, unknown)
	}
}

func TestBuildGraph_AllKindsValidateAgainstVocabulary(t *testing.T) {
	plan := examplePlan()
	kinds := []types.TransitionKind{
		types.TransitionBlend, types.TransitionCrossfade, types.TransitionBassSwap,
		types.TransitionFilterSweep, types.TransitionEchoOut, types.TransitionVinylStop,
	}
	for _, k := range kinds {
		g, err := BuildGraph(k, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
		if err != nil {
			t.Errorf("kind %s: BuildGraph returned error (should already be pre-validated): %v", k, err)
		}
		if g == "" {
			t.Errorf("kind %s: empty graph", k)
		}
	}
}

func TestBuildGraph_DuckingAppliedWhenVoiced(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBlend, GraphInputs{A: "a", B: "b", Out: "mix", Voiced: true}, plan, MixParams{DuckLevel: 0.45})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "volume=volume=0.450") {
		t.Errorf("expected duck volume filter at 0.45, got: %s", g)
	}
	if !strings.Contains(g, "enable='between(t,7.000,11.000)'") {
		t.Errorf("expected duck window [7,11] matching the voice plan, got: %s", g)
	}
}

func TestBuildGraph_NoDuckWhenNotVoiced(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBlend, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{DuckLevel: 0.45})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if strings.Contains(g, "enable=") {
		t.Errorf("unvoiced segment should not carry a duck filter: %s", g)
	}
}

func TestBuildGraph_VinylStopUsesFixedOneSecondCrossfadeAndTwoSecondBrake(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionVinylStop, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "acrossfade=d=1.000") {
		t.Errorf("vinyl_stop should crossfade over a fixed 1s, got: %s", g)
	}
	if !strings.Contains(g, "afade=t=out:st=0:d=2.000") {
		t.Errorf("vinyl_stop should brake over a default 2s fade, got: %s", g)
	}
	if !strings.Contains(g, "aecho=0.8:0.9:100:0.6") {
		t.Errorf("vinyl_stop missing its characteristic aecho params: %s", g)
	}
}

func TestBuildGraph_VinylStopBrakeIsConfigurable(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionVinylStop, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{VinylStopFade: 3 * time.Second})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "afade=t=out:st=0:d=3.000") {
		t.Errorf("vinyl_stop should honor a configured brake fade, got: %s", g)
	}
	if !strings.Contains(g, "acrossfade=d=1.000") {
		t.Errorf("vinyl_stop's following crossfade must stay fixed at 1s regardless of brake length, got: %s", g)
	}
}

func TestBuildGraph_EchoOutAppliesAechoBeforeCrossfade(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionEchoOut, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "aecho=0.8:0.88:500:0.5") {
		t.Errorf("echo_out missing its characteristic aecho params: %s", g)
	}
	echoIdx := strings.Index(g, "aecho")
	crossIdx := strings.Index(g, "acrossfade")
	if echoIdx == -1 || crossIdx == -1 || echoIdx > crossIdx {
		t.Errorf("echo_out must apply aecho before acrossfade: %s", g)
	}
}

func TestBuildGraph_BassSwapWithinLengthCap(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBassSwap, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(g) > 2000 {
		t.Errorf("bass_swap graph length %d exceeds 2000-char cap", len(g))
	}
}

func TestBuildGraph_BassSwapIsSixStreamGated(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBassSwap, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "asplit=3") {
		t.Errorf("bass_swap must split each side into low/high/clean: %s", g)
	}
	if !strings.Contains(g, "amix=inputs=6:duration=longest:normalize=0[mix]") {
		t.Errorf("bass_swap must sum exactly six gated streams with no trailing crossfade: %s", g)
	}
	if strings.Contains(g, "acrossfade") {
		t.Errorf("bass_swap's six-stream gating already implements the handoff, it must not also acrossfade: %s", g)
	}
	if !strings.Contains(g, "lowpass=f=250,lowpass=f=250") {
		t.Errorf("bass_swap should default to the 250Hz crossover, got: %s", g)
	}
}

func TestBuildGraph_BassSwapHonorsConfiguredCrossover(t *testing.T) {
	plan := examplePlan()
	g, err := BuildGraph(types.TransitionBassSwap, GraphInputs{A: "a", B: "b", Out: "mix"}, plan, MixParams{BassCrossoverHz: 300})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if !strings.Contains(g, "lowpass=f=300,lowpass=f=300") {
		t.Errorf("bass_swap should honor a configured 300Hz crossover, got: %s", g)
	}
}

// TestBuildGraph_BassSwapGainTimingProperty pins the exact gain-timing
// property of spec.md §8.4's worked example: with X=8 and tau_x=12, peak=16,
// fade_start=12, fade_end=20, so A-low's gate must read 1 at t=14 (inside
// [fade_start, peak]) and 0 at t=16.0001 (just past peak).
func TestBuildGraph_BassSwapGainTimingProperty(t *testing.T) {
	plan := examplePlan()
	plan.Crossfade = 8 * time.Second
	plan.CrossfadeAt = 12 * time.Second

	chains := bassSwapChains(GraphInputs{A: "a", B: "b", Out: "mix"}, plan, DefaultBassCrossoverHz)
	var aLowGate string
	for _, c := range chains {
		if strings.HasSuffix(c, "[a_lo]") {
			aLowGate = c
		}
	}
	if aLowGate == "" {
		t.Fatal("could not find A-low gate chain")
	}
	if !strings.Contains(aLowGate, "if(between(t,12.000,16.000),1,0)") {
		t.Errorf("expected A-low gate window [12,16] (fade_start=12, peak=16), got: %s", aLowGate)
	}

	const (
		atFourteen      = 14.0
		justPastSixteen = 16.0001
		fadeStart       = 12.0
		peak            = 16.0
	)
	if !(atFourteen >= fadeStart && atFourteen <= peak) {
		t.Errorf("t=14 should fall within [fade_start, peak]=[%v,%v]", fadeStart, peak)
	}
	if justPastSixteen <= peak {
		t.Errorf("t=16.0001 should fall outside [fade_start, peak]=[%v,%v]", fadeStart, peak)
	}
}
