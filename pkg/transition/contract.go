// Package transition implements the continuous-audio segment contract and the
// Transition Library (TL) filter-graph fragment builders described by the
// segment-production pipeline.
//
// This file holds the segment contract: the pure arithmetic that links
// segment n and segment n+1 so that playing rendered segments back-to-back
// reproduces a gapless (or intentionally, minutely overlapping) DJ mix. It
// performs no I/O and depends on nothing but the standard library, so every
// edge case is unit-testable by tabulation.
package transition

import (
	"math"
	"time"
)

// Defaults for parameters the caller may otherwise leave zero-valued.
const (
	DefaultLeadIn          = 12 * time.Second // L
	DefaultBEndBuffer      = 20 * time.Second // B_end
	DefaultOverlap         = 750 * time.Millisecond
	DefaultVoiceOffset     = 5 * time.Second // V_off
	DefaultDuckLevel       = 0.45
	DefaultCrossfade       = 10 * time.Second
	DefaultTargetLUFS      = -14.0
	DefaultBassCrossoverHz = 250.0
	DefaultVinylStopFade   = 2 * time.Second
	minCrossfade           = 50 * time.Millisecond
	crossfadeSafetyMargin  = 50 * time.Millisecond
	minTransitionStartSecs = 20.0
	bootstrapTrimFloor     = 60.0
	bootstrapTrimFallback  = 15.0
)

// SteadyInput carries everything needed to compute a steady (A→B) segment's
// timeline. Durations use time.Duration but the underlying math is performed
// in floating-point seconds to match the spec's formulas exactly.
type SteadyInput struct {
	DurationA time.Duration // T_A
	DurationB time.Duration // T_B

	// Crossfade is the requested crossfade length X. Zero selects
	// DefaultCrossfade before clamping.
	Crossfade time.Duration

	// LeadIn is L, the lead-in of A carried before the crossfade starts.
	// Zero selects DefaultLeadIn.
	LeadIn time.Duration

	// BEndBuffer is B_end, the tail of B withheld for the next segment.
	// Zero selects DefaultBEndBuffer.
	BEndBuffer time.Duration

	// Overlap is O, the intentional overlap with the next segment.
	// Zero selects DefaultOverlap.
	Overlap time.Duration

	// TransAt overrides t_trans_A (absolute time in A where the crossfade
	// starts). Zero selects the spec default before clamping.
	TransAt time.Duration

	// VoiceOffset is V_off, seconds before t_trans_A the voice begins.
	// Zero selects DefaultVoiceOffset.
	VoiceOffset time.Duration

	// VoiceDuration is the synthesized voice clip's length, or zero when no
	// voice stream is present for this segment.
	VoiceDuration time.Duration
}

// SteadyPlan is the pure output of BuildSteady: every timestamp needed to
// render the segment and to compute the handoff for the following segment.
type SteadyPlan struct {
	Crossfade time.Duration // X, after clamping

	// StartInA is t_start_A: the absolute time in A where the segment begins.
	StartInA time.Duration

	// TransAt is t_trans_A after clamping.
	TransAt time.Duration

	// LeadInLen is L_A_seg = T_A - t_start_A, the length of A carried.
	LeadInLen time.Duration

	// CrossfadeAt is tau_x, the segment-relative time the crossfade begins.
	CrossfadeAt time.Duration

	// DelayB is delay_ms expressed as a Duration: how far into the segment
	// timeline B's own τ=0 is placed.
	DelayB time.Duration

	// HandoffB is the B-time at which segment n+1 will begin carrying B.
	HandoffB time.Duration

	// TrimBEnd is t_B_end: the B-time at which this segment's carry of B is
	// truncated.
	TrimBEnd time.Duration

	// Duration is D_seg, the total rendered segment length.
	Duration time.Duration

	// VoiceDelay is delay_voice_ms as a Duration (zero if no voice).
	VoiceDelay time.Duration

	// VoiceStart/VoiceEnd are t_v_start/t_v_end, the segment-relative window
	// during which music is ducked (zero value both if no voice).
	VoiceStart time.Duration
	VoiceEnd   time.Duration

	// ClampedBelowFloor records that t_trans_A was forced to the 20s floor —
	// spec.md §4.1 directs the render to proceed anyway but log a warning.
	ClampedBelowFloor bool
}

// HandoffGap returns handoff_gap = handoff_B - t_B_end, where nextHandoffB is
// the B-time at which the next segment begins carrying the shared B track and
// thisTrimBEnd is the B-time at which this segment truncates it. A
// non-positive value is expected (small planned overlap or
// exact abutment); a positive value indicates an unintended gap and should be
// logged as a warning by the caller.
func HandoffGap(thisTrimBEnd, nextHandoffB time.Duration) time.Duration {
	return nextHandoffB - thisTrimBEnd
}

// BuildSteady computes the full segment contract for an A→B transition. It is
// pure and deterministic: the same SteadyInput always yields the same
// SteadyPlan.
func BuildSteady(in SteadyInput) SteadyPlan {
	tA := in.DurationA.Seconds()
	tB := in.DurationB.Seconds()

	leadIn := orDefault(in.LeadIn, DefaultLeadIn).Seconds()
	bEnd := orDefault(in.BEndBuffer, DefaultBEndBuffer).Seconds()
	overlap := orDefault(in.Overlap, DefaultOverlap).Seconds()
	voff := orDefault(in.VoiceOffset, DefaultVoiceOffset).Seconds()

	x := clampCrossfade(secondsOrDefault(in.Crossfade, DefaultCrossfade), tA, tB)
	if leadIn < x {
		leadIn = x
	}

	transAt := secondsOrDefault(in.TransAt, secondsToDuration(tA-bEnd-x))
	clampedLow := false
	maxTrans := tA - x
	if transAt > maxTrans {
		transAt = maxTrans
	}
	if transAt < minTransitionStartSecs {
		transAt = minTransitionStartSecs
		clampedLow = true
	}
	// Proceed even if the 20s floor still exceeds maxTrans for a very short
	// A track; the render is still attempted per spec.md's edge-case note.

	startInA := transAt - leadIn
	if startInA < 0 {
		startInA = 0
	}
	leadInLen := tA - startInA
	tauX := transAt - startInA

	delaySecs := tauX - overlap/2
	if delaySecs < 0 {
		delaySecs = 0
	}
	delayMs := math.Round(delaySecs * 1000)
	delaySecs = delayMs / 1000

	handoffB := (tB - bEnd) - leadIn
	if handoffB < 0 {
		handoffB = 0
	}
	trimBEnd := math.Min(tB, handoffB+overlap)

	dSeg := math.Max(leadInLen, delaySecs+trimBEnd)

	plan := SteadyPlan{
		Crossfade:         secondsToDuration(x),
		StartInA:          secondsToDuration(startInA),
		TransAt:           secondsToDuration(transAt),
		LeadInLen:         secondsToDuration(leadInLen),
		CrossfadeAt:       secondsToDuration(tauX),
		DelayB:            secondsToDuration(delaySecs),
		HandoffB:          secondsToDuration(handoffB),
		TrimBEnd:          secondsToDuration(trimBEnd),
		Duration:          secondsToDuration(dSeg),
		ClampedBelowFloor: clampedLow,
	}

	if in.VoiceDuration > 0 {
		vStart := tauX - voff
		if vStart < 0 {
			vStart = 0
		}
		vEnd := vStart + in.VoiceDuration.Seconds()
		plan.VoiceDelay = secondsToDuration(vStart)
		plan.VoiceStart = secondsToDuration(vStart)
		plan.VoiceEnd = secondsToDuration(vEnd)
	}

	return plan
}

// BootstrapInput carries the parameters for the first segment, which has no
// A track: a voice intro followed by the body of B.
type BootstrapInput struct {
	DurationB     time.Duration // T_B
	BEndBuffer    time.Duration // B_end, zero selects DefaultBEndBuffer
	Overlap       time.Duration // O, zero selects DefaultOverlap
	VoiceDuration time.Duration // zero when no voice script was produced
}

// BootstrapPlan is the pure output of BuildBootstrap.
type BootstrapPlan struct {
	// BStart is the segment-relative time B's τ=0 begins playing, overlapping
	// the tail Overlap seconds of the voice fade-out.
	BStart time.Duration

	// BTrim is the B-time at which B is truncated for this segment.
	BTrim time.Duration

	// Duration is the total rendered segment length.
	Duration time.Duration

	// VoiceFadeOut is the fixed 0.5s voice fade-out length.
	VoiceFadeOut time.Duration
}

// BuildBootstrap computes the bootstrap segment's timeline.
func BuildBootstrap(in BootstrapInput) BootstrapPlan {
	tB := in.DurationB.Seconds()
	bEnd := orDefault(in.BEndBuffer, DefaultBEndBuffer).Seconds()
	overlap := orDefault(in.Overlap, DefaultOverlap).Seconds()

	bTrim := tB - bEnd
	if bTrim < bootstrapTrimFloor {
		bTrim = tB - bootstrapTrimFallback
	}

	bStart := 0.0
	if in.VoiceDuration > 0 {
		bStart = in.VoiceDuration.Seconds() - overlap
		if bStart < 0 {
			bStart = 0
		}
	}

	return BootstrapPlan{
		BStart:       secondsToDuration(bStart),
		BTrim:        secondsToDuration(bTrim),
		Duration:     secondsToDuration(bStart + bTrim),
		VoiceFadeOut: 500 * time.Millisecond,
	}
}

// clampCrossfade enforces 0.05 <= X <= min(T_A, T_B) - 0.05, applying the
// spec's 0.05s safety margins at both ends even when the bounds are
// infeasible for very short tracks (best-effort clamp; the caller still
// attempts the render per spec.md's edge-case guidance).
func clampCrossfade(x, tA, tB float64) float64 {
	lo := minCrossfade.Seconds()
	hi := math.Min(tA, tB) - crossfadeSafetyMargin.Seconds()
	if x < lo {
		x = lo
	}
	if hi < lo {
		hi = lo
	}
	if x > hi {
		x = hi
	}
	return x
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func secondsOrDefault(d, def time.Duration) float64 {
	if d <= 0 {
		return def.Seconds()
	}
	return d.Seconds()
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
