// Package planning implements the Planning Graph (PG): the fixed sequence of
// stages that turns catalog state and capability calls into one rendered,
// playable segment per invocation.
//
// An orchestrator routing live transcripts between conversational agents has
// a routing decision to make on every turn; the Planning Graph doesn't — it
// runs the same fixed chain of stages every time, either the bootstrap shape
// (no prior track) or the steady shape (crossfading A into B). Both shapes
// are implemented as plain Go methods calling one another in sequence rather
// than a general graph executor, since the DAG never branches.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/mediacache"
	"github.com/airwavefm/aidj/pkg/provider/embeddings"
	"github.com/airwavefm/aidj/pkg/provider/fetcher"
	"github.com/airwavefm/aidj/pkg/provider/fge"
	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/provider/metadata"
	"github.com/airwavefm/aidj/pkg/provider/tts"
	"github.com/airwavefm/aidj/pkg/types"
)

// FailureKind names the taxonomy of invocation-aborting failures from
// spec.md §7. Stage-local recoveries (fallback to defaults) never produce a
// FailureKind; only failures that prevent a valid segment from being
// produced do.
type FailureKind string

const (
	// FailureNoCandidate means track selection produced no candidate at all.
	FailureNoCandidate FailureKind = "NO_CANDIDATE"

	// FailureFetchFailed means the Track Fetcher could not retrieve a
	// required track's audio.
	FailureFetchFailed FailureKind = "FETCH_FAILED"

	// FailureRenderFailed means the Filter-Graph Executor returned a nonzero
	// exit or an empty output file.
	FailureRenderFailed FailureKind = "RENDER_FAILED"

	// FailurePersistFailed means the segment row itself could not be
	// persisted (planner-trace persistence failures are logged, not fatal).
	FailurePersistFailed FailureKind = "PERSIST_FAILED"
)

// Error wraps an invocation-aborting failure with its taxonomy kind so the
// scheduler can widen its cooldown without string-matching error text.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("planning: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind FailureKind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Notifier receives a best-effort, out-of-band signal each time a segment
// finishes the PERSISTING stage and is enqueued to the Segment Queue. It is
// the planning graph's side of the transport's "segment_ready" broadcast;
// the transport implementation supplies the concrete notification channel.
type Notifier interface {
	NotifySegmentReady(seg types.Segment)
}

// noopNotifier is used when no [Notifier] is configured.
type noopNotifier struct{}

func (noopNotifier) NotifySegmentReady(types.Segment) {}

// ReasoningBudgets names the per-stage token budgets requested of the
// Planner LLM, mirroring config.ReasoningBudgets without importing the
// config package (the planning graph must not depend on the config schema).
type ReasoningBudgets struct {
	Track      int
	Transition int
	Speech     int
}

// AudioParams carries the segment-contract and mix parameters the render
// stages need; it mirrors the relevant subset of config.TransitionConfig and
// config.AudioConfig.
type AudioParams struct {
	CrossfadeDefault time.Duration
	BEndBuffer       time.Duration
	LeadIn           time.Duration
	VoiceOffset      time.Duration
	Overlap          time.Duration
	DuckLevel        float64
	BitrateKbps      int

	// TargetLUFS is the per-stream loudness normalization target applied to
	// A and B ahead of the transition. Zero selects transition.DefaultTargetLUFS.
	TargetLUFS float64

	// BassCrossoverFreq is the low/high split point, in Hz, the bass_swap
	// transition gates around. Zero selects transition.DefaultBassCrossoverHz.
	BassCrossoverFreq float64
}

// Graph holds every capability and store dependency a planning-graph
// invocation needs, plus the fixed parameters that shape the stage
// contracts. A Graph is safe for concurrent use only insofar as its
// dependencies are; the Segment Scheduler is expected to run one invocation
// at a time regardless (spec.md §5).
type Graph struct {
	LLM      llm.Provider
	TTS      tts.Provider
	Metadata metadata.Provider
	Fetcher  fetcher.Provider
	FGE      fge.Provider
	Store    catalog.Store
	Cache    *mediacache.Cache

	// Embeddings is optional. When set, selectTrack embeds the listener's
	// mood/preferences and ranks cached candidates by cosine distance to it
	// (pkg/catalog's pgvector-backed CandidateQuery.MoodVector). A nil
	// Embeddings falls back to the unranked candidate order.
	Embeddings embeddings.Provider

	// CacheDir is the directory the Track Fetcher and Voice Synthesizer
	// write new files into.
	CacheDir string

	Voice   types.VoiceProfile
	Budgets ReasoningBudgets
	Audio   AudioParams

	// MaxGraphTextLength caps the textual length of any filter-graph fed to
	// the FGE, per spec.md §6. Zero selects fge.MaxGraphLength.
	MaxGraphTextLength int

	Notifier Notifier
	Log      *slog.Logger
}

// Option configures a Graph during construction.
type Option func(*Graph)

// WithNotifier sets the out-of-band segment-ready notifier.
func WithNotifier(n Notifier) Option {
	return func(g *Graph) { g.Notifier = n }
}

// WithLogger sets the structured logger used for stage-local warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.Log = l }
}

// WithEmbeddings sets the optional mood-vector embedding provider used to
// rank candidates by listener preference.
func WithEmbeddings(e embeddings.Provider) Option {
	return func(g *Graph) { g.Embeddings = e }
}

// New constructs a Graph from its required dependencies and parameters.
func New(
	llmP llm.Provider,
	ttsP tts.Provider,
	metaP metadata.Provider,
	fetchP fetcher.Provider,
	fgeP fge.Provider,
	store catalog.Store,
	cache *mediacache.Cache,
	cacheDir string,
	voice types.VoiceProfile,
	budgets ReasoningBudgets,
	audio AudioParams,
	opts ...Option,
) *Graph {
	g := &Graph{
		LLM:      llmP,
		TTS:      ttsP,
		Metadata: metaP,
		Fetcher:  fetchP,
		FGE:      fgeP,
		Store:    store,
		Cache:    cache,
		CacheDir: cacheDir,
		Voice:    voice,
		Budgets:  budgets,
		Audio:    audio,
		Notifier: noopNotifier{},
		Log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// persistTrace records a best-effort planner-call trace. Failures are
// logged, never propagated, per spec.md §7's PERSIST_FAILED non-fatal rule
// for traces.
func (g *Graph) persistTrace(ctx context.Context, t types.PlannerTrace) {
	if err := g.Store.InsertPlannerTrace(ctx, t); err != nil {
		g.Log.Warn("planning: persist planner trace failed", "stage", t.Stage, "error", err)
	}
}
