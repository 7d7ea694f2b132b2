package planning

import (
	"encoding/json"
	"os"
	"time"

	"github.com/airwavefm/aidj/pkg/transition"
	"github.com/airwavefm/aidj/pkg/types"
)

// sidecar is the per-segment companion JSON documented in spec.md §6. It is
// written best-effort next to the rendered audio file; a failure to write it
// never fails the invocation, since nothing downstream reads it back.
type sidecar struct {
	Song1       sidecarSong1      `json:"song1"`
	Song2       sidecarSong2      `json:"song2"`
	Transition  sidecarTransition `json:"transition"`
	TTS         *sidecarTTS       `json:"tts,omitempty"`
	Render      sidecarRender     `json:"render"`
}

type sidecarSong1 struct {
	Start                float64 `json:"start"`
	End                  float64 `json:"end"`
	TransitionStart      float64 `json:"transition_start"`
	SegmentTransitionPos float64 `json:"segment_transition_pos"`
}

type sidecarSong2 struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	HandoffStart    float64 `json:"handoff_start"`
	OverlapWithNext float64 `json:"overlap_with_next"`
}

type sidecarTransition struct {
	Type             string  `json:"type"`
	CrossfadeSeconds float64 `json:"crossfade_duration"`
	DelayMs          int64   `json:"delay_ms"`
	StartInSegment   float64 `json:"start_in_segment"`
}

type sidecarTTS struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	DelayMs int64   `json:"delay_ms"`
}

type sidecarRender struct {
	ExpectedDuration float64 `json:"expected_duration"`
	ActualDuration   float64 `json:"actual_duration"`
	HandoffGap       float64 `json:"handoff_gap"`
}

// writeSteadySidecar builds and writes the sidecar for a steady (A->B)
// segment. nextHandoffB is the following segment's planned HandoffB, used
// to compute handoff_gap per transition.HandoffGap; zero when unknown (the
// very next invocation hasn't planned yet).
func writeSteadySidecar(path string, plan transition.SteadyPlan, kind types.TransitionKind, actual time.Duration, nextHandoffB time.Duration) {
	sc := sidecar{
		Song1: sidecarSong1{
			Start:                plan.StartInA.Seconds(),
			End:                  (plan.StartInA + plan.LeadInLen).Seconds(),
			TransitionStart:      plan.TransAt.Seconds(),
			SegmentTransitionPos: plan.CrossfadeAt.Seconds(),
		},
		Song2: sidecarSong2{
			Start:           0,
			End:             plan.TrimBEnd.Seconds(),
			HandoffStart:    plan.HandoffB.Seconds(),
			OverlapWithNext: (plan.TrimBEnd - plan.HandoffB).Seconds(),
		},
		Transition: sidecarTransition{
			Type:             string(kind.Normalize()),
			CrossfadeSeconds: plan.Crossfade.Seconds(),
			DelayMs:          plan.DelayB.Milliseconds(),
			StartInSegment:   plan.CrossfadeAt.Seconds(),
		},
		Render: sidecarRender{
			ExpectedDuration: plan.Duration.Seconds(),
			ActualDuration:   actual.Seconds(),
			HandoffGap:       transition.HandoffGap(plan.TrimBEnd, nextHandoffB).Seconds(),
		},
	}
	if plan.VoiceEnd > 0 {
		sc.TTS = &sidecarTTS{
			Start:   plan.VoiceStart.Seconds(),
			End:     plan.VoiceEnd.Seconds(),
			DelayMs: plan.VoiceDelay.Milliseconds(),
		}
	}
	writeSidecarFile(path, sc)
}

// writeBootstrapSidecar builds and writes the sidecar for the bootstrap
// segment, which has no A track.
func writeBootstrapSidecar(path string, plan transition.BootstrapPlan, actual time.Duration, voiceDuration time.Duration) {
	sc := sidecar{
		Song2: sidecarSong2{
			Start:           0,
			End:             plan.BTrim.Seconds(),
			HandoffStart:    plan.BTrim.Seconds(),
			OverlapWithNext: 0,
		},
		Transition: sidecarTransition{
			Type: "bootstrap",
		},
		Render: sidecarRender{
			ExpectedDuration: plan.Duration.Seconds(),
			ActualDuration:   actual.Seconds(),
		},
	}
	if voiceDuration > 0 {
		sc.TTS = &sidecarTTS{
			Start: 0,
			End:   voiceDuration.Seconds(),
		}
	}
	writeSidecarFile(path, sc)
}

func writeSidecarFile(segmentPath string, sc sidecar) {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(segmentPath+".json", data, 0o644)
}
