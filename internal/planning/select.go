package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/provider/metadata"
	"github.com/airwavefm/aidj/pkg/types"
)

// titleSimilarityThreshold is how close two titles' Jaro-Winkler similarity
// must be before a fresh search hit is treated as a near-duplicate of
// something already in rotation (e.g. a "Remastered 2011" reissue under a
// different catalog id).
const titleSimilarityThreshold = 0.92

// selectionResult is the output of selectTrack: a chosen track already
// upserted into the catalog, plus the rationale string PL gave (or a
// synthesized one for the no-PL fallback path).
type selectionResult struct {
	TrackID   string
	Rationale string
}

// selectTrack implements both select_initial and plan_next_track: they share
// every input and behavior described in spec.md §4.2 except the stage name
// recorded on the planner trace.
func (g *Graph) selectTrack(ctx context.Context, sessionID, stageName string, userCtx types.UserContext) (selectionResult, error) {
	sessionHistory, err := g.Store.RecentPlays(ctx, sessionID, 5)
	if err != nil {
		return selectionResult{}, fmt.Errorf("planning: %s: session history: %w", stageName, err)
	}
	globalHistory, err := g.Store.GlobalRecentPlays(ctx, 50)
	if err != nil {
		return selectionResult{}, fmt.Errorf("planning: %s: global history: %w", stageName, err)
	}

	exclude := make([]string, 0, len(globalHistory))
	for _, e := range globalHistory {
		exclude = append(exclude, e.TrackID)
	}
	recentTitles := g.recentTitles(ctx, exclude)

	moodVector := g.moodVector(ctx, stageName, userCtx)
	candidates, err := g.Store.CachedCandidates(ctx, catalog.CandidateQuery{Exclude: exclude, Limit: 20, MoodVector: moodVector})
	if err != nil {
		return selectionResult{}, fmt.Errorf("planning: %s: cached candidates: %w", stageName, err)
	}
	candidates = dropNearDuplicates(candidates, recentTitles)

	if len(candidates) == 0 {
		candidates, err = g.searchFreshCandidates(ctx, sessionID, stageName, userCtx, recentTitles)
		if err != nil {
			return selectionResult{}, err
		}
	}
	if len(candidates) == 0 {
		return selectionResult{}, fail(FailureNoCandidate, fmt.Errorf("%s: no candidate available (cache empty, metadata provider exhausted)", stageName))
	}

	chosenID, rationale := g.choose(ctx, sessionID, stageName, userCtx, sessionHistory, candidates)
	return selectionResult{TrackID: chosenID, Rationale: rationale}, nil
}

// moodVector embeds the listener's freeform prompt and preferences with g's
// optional Embeddings provider, returning nil when no provider is configured,
// the listener context carries nothing to embed, or the call fails — any of
// which simply falls back to the unranked candidate order.
func (g *Graph) moodVector(ctx context.Context, stageName string, userCtx types.UserContext) []float32 {
	if g.Embeddings == nil {
		return nil
	}
	text := strings.TrimSpace(strings.Join(append([]string{userCtx.FreeformPrompt}, userCtx.Preferences...), " "))
	if text == "" {
		return nil
	}
	vec, err := g.Embeddings.Embed(ctx, text)
	if err != nil {
		g.Log.Warn("planning: mood embedding failed, falling back to unranked candidates", "stage", stageName, "error", err)
		return nil
	}
	return vec
}

// recentTitles resolves a bounded set of track ids to their titles, used
// only for the Jaro-Winkler near-duplicate filter. Lookups that fail are
// skipped; this is a best-effort enrichment, not a correctness requirement.
func (g *Graph) recentTitles(ctx context.Context, ids []string) []string {
	titles := make([]string, 0, len(ids))
	for _, id := range ids {
		t, err := g.Store.GetTrack(ctx, id)
		if err != nil || t == nil {
			continue
		}
		titles = append(titles, t.Title)
	}
	return titles
}

// dropNearDuplicates removes candidates whose title is a near-duplicate
// (Jaro-Winkler similarity above titleSimilarityThreshold) of any recently
// played title, then drops near-duplicates among the candidates themselves,
// keeping the first occurrence.
func dropNearDuplicates(candidates []types.Track, recentTitles []string) []types.Track {
	out := make([]types.Track, 0, len(candidates))
	kept := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if similarToAny(c.Title, recentTitles) || similarToAny(c.Title, kept) {
			continue
		}
		out = append(out, c)
		kept = append(kept, c.Title)
	}
	return out
}

func similarToAny(title string, others []string) bool {
	for _, o := range others {
		if matchr.JaroWinkler(strings.ToLower(title), strings.ToLower(o), true) >= titleSimilarityThreshold {
			return true
		}
	}
	return false
}

// searchFreshCandidates asks PL for up to 5 artist/title query strings and
// resolves each via MP, upserting any hit into the catalog as a new,
// not-yet-cached track.
func (g *Graph) searchFreshCandidates(ctx context.Context, sessionID, stageName string, userCtx types.UserContext, recentTitles []string) ([]types.Track, error) {
	queries, err := g.suggestQueries(ctx, sessionID, stageName, userCtx)
	if err != nil || len(queries) == 0 {
		// PL unavailable or produced nothing usable: stage-local recovery,
		// not a failure — selection simply proceeds with an empty candidate
		// list, which NO_CANDIDATEs out above if MP also has nothing.
		return nil, nil
	}

	found := make([]types.Track, 0, len(queries))
	for _, q := range queries {
		res, err := g.Metadata.Lookup(ctx, q)
		if err != nil {
			continue
		}
		if similarToAny(res.Track.Title, recentTitles) {
			continue
		}
		if res.Track.ID == "" {
			continue
		}
		if err := g.Store.UpsertTrack(ctx, res.Track); err != nil {
			g.Log.Warn("planning: upsert fresh track failed", "track_id", res.Track.ID, "error", err)
			continue
		}
		if res.Features.TrackID != "" {
			if err := g.Store.UpsertFeatures(ctx, res.Features); err != nil {
				g.Log.Warn("planning: upsert fresh features failed", "track_id", res.Track.ID, "error", err)
			}
		}
		found = append(found, res.Track)
	}
	return found, nil
}

// suggestQueryResponse is the JSON shape requested of PL for query
// suggestions: a flat list of artist/title pairs.
type suggestQueryResponse struct {
	Queries []struct {
		Artist string `json:"artist"`
		Title  string `json:"title"`
	} `json:"queries"`
}

func (g *Graph) suggestQueries(ctx context.Context, sessionID, stageName string, userCtx types.UserContext) ([]metadata.Query, error) {
	prompt := fmt.Sprintf(
		"Suggest up to 5 specific (artist, title) search queries for the next track in a continuous DJ mix. "+
			"Listener mood: %.2f. Preferences: %s. %s\n"+
			`Respond with JSON only: {"queries":[{"artist":"...","title":"..."}]}`,
		userCtx.Mood, strings.Join(userCtx.Preferences, ", "), userCtx.FreeformPrompt,
	)

	resp, err := g.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:     []types.Message{{Role: "user", Content: prompt}},
		SystemPrompt: "You are a music search assistant for an autonomous radio DJ.",
		MaxTokens:    g.Budgets.Track,
	})
	g.persistTrace(ctx, types.PlannerTrace{
		SessionID: sessionID, Stage: stageName + ":suggest_queries",
		Prompt: prompt, Response: responseText(resp), ReasoningBudget: g.Budgets.Track, CreatedAt: time.Now(),
	})
	if err != nil || resp == nil {
		return nil, nil
	}

	var parsed suggestQueryResponse
	if jsonErr := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); jsonErr != nil {
		return nil, nil
	}

	queries := make([]metadata.Query, 0, len(parsed.Queries))
	for i, q := range parsed.Queries {
		if i >= 5 {
			break
		}
		if q.Artist == "" && q.Title == "" {
			continue
		}
		queries = append(queries, metadata.Query{Artist: q.Artist, Title: q.Title})
	}
	return queries, nil
}

// selectResponse is the JSON shape requested of PL for track selection.
type selectResponse struct {
	TrackID   string `json:"track_id"`
	Rationale string `json:"rationale"`
}

// choose asks PL to pick among candidates; if PL is unavailable or its
// response cannot be resolved to one of the offered candidates, the first
// candidate is chosen instead, per spec.md §4.2.
func (g *Graph) choose(ctx context.Context, sessionID, stageName string, userCtx types.UserContext, sessionHistory []types.PlayHistoryEntry, candidates []types.Track) (string, string) {
	prompt := buildSelectionPrompt(userCtx, sessionHistory, candidates)

	resp, err := g.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:     []types.Message{{Role: "user", Content: prompt}},
		SystemPrompt: "You are the track-selection stage of an autonomous radio DJ's planning graph.",
		MaxTokens:    g.Budgets.Track,
	})
	g.persistTrace(ctx, types.PlannerTrace{
		SessionID: sessionID, Stage: stageName,
		Prompt: prompt, Response: responseText(resp), ReasoningBudget: g.Budgets.Track, CreatedAt: time.Now(),
	})
	if err != nil || resp == nil {
		return candidates[0].ID, "planner unavailable: selected first cached candidate"
	}

	var parsed selectResponse
	if jsonErr := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); jsonErr != nil {
		return candidates[0].ID, "planner response malformed: selected first cached candidate"
	}
	for _, c := range candidates {
		if c.ID == parsed.TrackID {
			return c.ID, parsed.Rationale
		}
	}
	return candidates[0].ID, "planner chose an unlisted track: selected first cached candidate"
}

func buildSelectionPrompt(userCtx types.UserContext, history []types.PlayHistoryEntry, candidates []types.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listener: %s. Mood: %.2f. Preferences: %s. %s\n",
		userCtx.Name, userCtx.Mood, strings.Join(userCtx.Preferences, ", "), userCtx.FreeformPrompt)
	fmt.Fprintf(&b, "Recent plays this session (most recent first): %d entries.\n", len(history))
	b.WriteString("Candidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s artist=%q title=%q\n", c.ID, c.Artist, c.Title)
	}
	b.WriteString(`Choose the best next track. Respond with JSON only: {"track_id":"...","rationale":"..."}`)
	return b.String()
}

// responseText safely extracts content from a possibly-nil response for
// trace logging.
func responseText(resp *llm.CompletionResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Content
}

// extractJSON trims any leading/trailing prose a chat model adds around a
// JSON object, returning the substring from the first '{' to the last '}'.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
