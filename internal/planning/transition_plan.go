package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/transition"
	"github.com/airwavefm/aidj/pkg/types"
)

// transitionFieldGuide is the prompt text describing the transition kinds PL
// may choose between and the fields it must return.
const transitionFieldGuide = `You are the transition-planning stage of an autonomous radio DJ. ` +
	`Choose one transition_kind from {blend, bass_swap, filter_sweep, echo_out, vinyl_stop} for the ` +
	`handoff from track A into track B, plus numeric timing fields. Respond with JSON only: ` +
	`{"transition_kind":"...","t_trans_a":<seconds into A>,"x":<crossfade seconds>,"v_off":<seconds>,"rationale":"..."}`

// transitionPlanResponse is the JSON shape requested of PL.
type transitionPlanResponse struct {
	TransitionKind string  `json:"transition_kind"`
	TTransA        float64 `json:"t_trans_a"`
	X              float64 `json:"x"`
	VOff           float64 `json:"v_off"`
	Rationale      string  `json:"rationale"`
}

// transitionChoice is plan_transition's output: a transition kind plus the
// SteadyInput overrides it implies.
type transitionChoice struct {
	Kind      types.TransitionKind
	TransAt   time.Duration
	Crossfade time.Duration
	VoiceOff  time.Duration
	Rationale string
}

// planTransition implements the plan_transition stage: it calls PL with both
// file paths and the transition field guide; a malformed or missing response
// falls back to
// the PLAN_MALFORMED defaults from spec.md §7 rather than failing the
// invocation.
func (g *Graph) planTransition(ctx context.Context, sessionID string, durA, durB time.Duration) transitionChoice {
	fallback := transitionChoice{
		Kind:      types.TransitionBlend,
		TransAt:   durA - 30*time.Second,
		Crossfade: transition.DefaultCrossfade,
		VoiceOff:  transition.DefaultVoiceOffset,
		Rationale: "default transition plan (no prior track)",
	}

	prompt := fmt.Sprintf("%s\nTrack A duration: %.1fs. Track B duration: %.1fs.",
		transitionFieldGuide, durA.Seconds(), durB.Seconds())

	resp, err := g.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:     []types.Message{{Role: "user", Content: prompt}},
		SystemPrompt: "You are the transition-planning stage of an autonomous radio DJ's planning graph.",
		MaxTokens:    g.Budgets.Transition,
	})
	g.persistTrace(ctx, types.PlannerTrace{
		SessionID: sessionID, Stage: "plan_transition",
		Prompt: prompt, Response: responseText(resp), ReasoningBudget: g.Budgets.Transition, CreatedAt: time.Now(),
	})
	if err != nil || resp == nil {
		fallback.Rationale = "planner unavailable: using PLAN_MALFORMED defaults"
		return fallback
	}

	var parsed transitionPlanResponse
	if jsonErr := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); jsonErr != nil {
		fallback.Rationale = "planner response malformed: using PLAN_MALFORMED defaults"
		return fallback
	}

	kind := types.TransitionKind(parsed.TransitionKind)
	if !kind.Valid() {
		kind = types.TransitionBlend
	}

	return transitionChoice{
		Kind:      kind,
		TransAt:   clampSeconds(parsed.TTransA, 0, durA.Seconds()),
		Crossfade: clampDuration(parsed.X, 10),
		VoiceOff:  clampDuration(parsed.VOff, 5),
		Rationale: parsed.Rationale,
	}
}

func clampSeconds(v, lo, hi float64) time.Duration {
	if v <= 0 {
		v = hi - 30
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return time.Duration(v * float64(time.Second))
}

func clampDuration(v, defaultSecs float64) time.Duration {
	if v <= 0 {
		v = defaultSecs
	}
	return time.Duration(v * float64(time.Second))
}
