package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/types"
)

// maxScriptSentences caps write_transition_script / write_intro_script's
// output length per spec.md §4.2 ("accept short text, <= 4 sentences").
const maxScriptSentences = 4

// writeScript implements both write_intro_script and write_transition_script:
// a short creative prompt including the user context, trimmed to at most
// maxScriptSentences. An empty or failed response is not an error — it
// signals the SPEAKING stage to skip voice entirely.
func (g *Graph) writeScript(ctx context.Context, sessionID, stageName, creativePrompt string, userCtx types.UserContext) string {
	prompt := fmt.Sprintf("%s\nListener: %s. Mood: %.2f. Preferences: %s. %s",
		creativePrompt, userCtx.Name, userCtx.Mood, strings.Join(userCtx.Preferences, ", "), userCtx.FreeformPrompt)

	resp, err := g.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:     []types.Message{{Role: "user", Content: prompt}},
		SystemPrompt: "You are the on-air voice of an autonomous radio DJ. Write in first person, spoken style.",
		MaxTokens:    g.Budgets.Speech,
	})
	g.persistTrace(ctx, types.PlannerTrace{
		SessionID: sessionID, Stage: stageName,
		Prompt: prompt, Response: responseText(resp), ReasoningBudget: g.Budgets.Speech, CreatedAt: time.Now(),
	})
	if err != nil || resp == nil {
		return ""
	}
	return truncateSentences(strings.TrimSpace(resp.Content), maxScriptSentences)
}

// truncateSentences keeps at most n sentences, counting every '.', '!' or '?'
// as a sentence end whether or not whitespace follows it. Text with fewer
// terminators is returned unchanged.
func truncateSentences(text string, n int) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	count := 0
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			count++
			if count >= n {
				return b.String()
			}
		}
	}
	return b.String()
}
