package transition

import (
	"fmt"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/fge"
	"github.com/airwavefm/aidj/pkg/types"
)

// GraphInputs names the ffmpeg stream labels the Transition Library reads
// from and writes to when building a segment's filter_complex. A and B are
// assumed already trimmed/delayed per the SteadyPlan or BootstrapPlan (atrim
// and adelay chains are the caller's concern, built alongside these — the
// library itself only builds the transition-shaping portion of the graph).
type GraphInputs struct {
	A      string // input label carrying the outgoing track, e.g. "a"
	B      string // input label carrying the incoming track, e.g. "b"
	Out    string // output label the caller will mix/duck/finalize from
	Voice  string // input label carrying the synthesized voice clip, or ""
	Voiced bool
}

// MixParams carries the mix-shaping knobs BuildGraph needs beyond the
// segment-contract plan itself: the duck level applied under a voice clip,
// the bass_swap low/high crossover frequency, and the vinyl_stop brake fade
// length. A zero BassCrossoverHz or VinylStopFade selects its package default;
// a zero DuckLevel applies no ducking.
type MixParams struct {
	DuckLevel       float64
	BassCrossoverHz float64
	VinylStopFade   time.Duration
}

// BuildGraph returns the filter_complex fragment implementing kind, and
// validates it against the allowed filter vocabulary and length cap before
// returning it. Duration/offset fields are taken from plan; kind is
// normalized first, so an unrecognized kind silently builds a blend.
func BuildGraph(kind types.TransitionKind, in GraphInputs, plan SteadyPlan, mix MixParams) (string, error) {
	b := fge.NewBuilder()

	crossoverHz := mix.BassCrossoverHz
	if crossoverHz <= 0 {
		crossoverHz = DefaultBassCrossoverHz
	}
	stopFade := mix.VinylStopFade
	if stopFade <= 0 {
		stopFade = DefaultVinylStopFade
	}

	switch kind.Normalize() {
	case types.TransitionBassSwap:
		for _, chain := range bassSwapChains(in, plan, crossoverHz) {
			b.AddChain(chain)
		}
	case types.TransitionEchoOut:
		for _, chain := range echoOutChains(in, plan) {
			b.AddChain(chain)
		}
	case types.TransitionVinylStop:
		for _, chain := range vinylStopChains(in, plan, stopFade) {
			b.AddChain(chain)
		}
	default:
		// blend, crossfade, and filter_sweep (a documented placeholder alias,
		// see DESIGN.md) all build an equal-power crossfade.
		b.AddChain(crossfadeChain(in.A, in.B, in.Out, plan.Crossfade))
	}

	if in.Voiced && mix.DuckLevel > 0 {
		b.AddChain(duckChain(in.Out, in.Out+"_duck", plan.VoiceStart, plan.VoiceEnd, mix.DuckLevel))
		in.Out = in.Out + "_duck"
	}

	return b.BuildAndValidate()
}

// crossfadeChain implements the equal-power crossfade used by blend,
// crossfade, and filter_sweep.
func crossfadeChain(a, b, out string, crossfade time.Duration) string {
	return fmt.Sprintf("[%s][%s]acrossfade=d=%s:c1=tri:c2=tri[%s]", a, b, fseconds(crossfade), out)
}

// bassSwapChains builds the six-stream gated bass-swap: each side is split
// into a low-passed, a high-passed, and a clean copy (two stacked
// low/high-pass stages approximate a 24 dB/oct crossover), and each of the
// six resulting streams is independently gated by a per-frame volume
// expression before all six are summed. peak = tau_x + X/2, fade_start =
// peak - X/2, fade_end = peak + X/2: A's highs ramp out and B's highs ramp
// in across [fade_start, fade_end]; A's lows hold at 1 in [fade_start, peak]
// then drop to 0; B's lows are 0 until peak, then hold at 1 through
// fade_end; A's clean band plays only before fade_start, B's clean band only
// after fade_end. Grounded on the original's apply_bass_swap.
func bassSwapChains(in GraphInputs, plan SteadyPlan, crossoverHz float64) []string {
	peak := plan.CrossfadeAt + plan.Crossfade/2
	fadeStart := peak - plan.Crossfade/2
	fadeEnd := peak + plan.Crossfade/2
	dur := fseconds(plan.Crossfade)
	fs, pk, fe := fseconds(fadeStart), fseconds(peak), fseconds(fadeEnd)
	hz := fmt.Sprintf("%g", crossoverHz)

	aLoS, aHiS, aClS := in.A+"_lo_s", in.A+"_hi_s", in.A+"_cl_s"
	bLoS, bHiS, bClS := in.B+"_lo_s", in.B+"_hi_s", in.B+"_cl_s"
	aLo, aHi, aCl := in.A+"_lo", in.A+"_hi", in.A+"_cl"
	bLo, bHi, bCl := in.B+"_lo", in.B+"_hi", in.B+"_cl"

	return []string{
		fmt.Sprintf("[%s]asplit=3[%s][%s][%s]", in.A, aLoS, aHiS, aClS),
		fmt.Sprintf("[%s]asplit=3[%s][%s][%s]", in.B, bLoS, bHiS, bClS),

		fmt.Sprintf("[%s]lowpass=f=%s,lowpass=f=%s,volume=eval=frame:volume='if(between(t,%s,%s),1,0)'[%s]",
			aLoS, hz, hz, fs, pk, aLo),
		fmt.Sprintf("[%s]highpass=f=%s,highpass=f=%s,volume=eval=frame:volume='if(between(t,%s,%s),(%s-t)/%s,0)'[%s]",
			aHiS, hz, hz, fs, fe, fe, dur, aHi),
		fmt.Sprintf("[%s]volume=eval=frame:volume='if(lt(t,%s),1,0)'[%s]", aClS, fs, aCl),

		fmt.Sprintf("[%s]lowpass=f=%s,lowpass=f=%s,volume=eval=frame:volume='if(between(t,%s,%s),1,0)'[%s]",
			bLoS, hz, hz, pk, fe, bLo),
		fmt.Sprintf("[%s]highpass=f=%s,highpass=f=%s,volume=eval=frame:volume='if(between(t,%s,%s),(t-%s)/%s,0)'[%s]",
			bHiS, hz, hz, fs, fe, fs, dur, bHi),
		fmt.Sprintf("[%s]volume=eval=frame:volume='if(gt(t,%s),1,0)'[%s]", bClS, fe, bCl),

		fmt.Sprintf("[%s][%s][%s][%s][%s][%s]amix=inputs=6:duration=longest:normalize=0[%s]",
			aLo, aHi, aCl, bLo, bHi, bCl, in.Out),
	}
}

// echoOutChains tails the outgoing track with a short echo before the
// crossfade begins, per the original's apply_echo_out.
func echoOutChains(in GraphInputs, plan SteadyPlan) []string {
	echoed := in.A + "_echo"
	return []string{
		fmt.Sprintf("[%s]aecho=0.8:0.88:500:0.5[%s]", in.A, echoed),
		crossfadeChain(echoed, in.B, in.Out, plan.Crossfade),
	}
}

// vinylStopChains brakes the outgoing track to a stop over stopFade (X_stop,
// default 2s) and echoes it to a wash, then crossfades into B over a fixed,
// short window regardless of the planned crossfade length — the original
// always uses a 1s crossfade for this transition since the vinyl-stop effect
// itself supplies most of the perceived transition time.
func vinylStopChains(in GraphInputs, plan SteadyPlan, stopFade time.Duration) []string {
	const stopCrossfade = time.Second
	stopped := in.A + "_stop"
	return []string{
		fmt.Sprintf("[%s]afade=t=out:st=0:d=%s,aecho=0.8:0.9:100:0.6[%s]", in.A, fseconds(stopFade), stopped),
		crossfadeChain(stopped, in.B, in.Out, stopCrossfade),
	}
}

// duckChain attenuates a mixed music bed to duckLevel (0-1, as a linear
// volume multiplier) for the [start,end] segment-relative window the
// synthesized voice clip occupies.
func duckChain(in, out string, start, end time.Duration, duckLevel float64) string {
	return fmt.Sprintf("[%s]volume=volume=%.3f:enable='between(t,%s,%s)'[%s]",
		in, duckLevel, fseconds(start), fseconds(end), out)
}

func fseconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
