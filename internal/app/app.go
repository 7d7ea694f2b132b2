// Package app wires the AI DJ broadcaster's subsystems into a running
// application: configured providers behind resilience fallback groups, the
// catalog store, the media cache, the Planning Graph, the Segment Scheduler,
// and the transport control-plane that signals segment readiness.
//
// The App struct owns the full lifecycle: New creates and connects every
// subsystem, Run drives the scheduler until cancelled, and Shutdown tears
// everything down in order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/airwavefm/aidj/internal/config"
	"github.com/airwavefm/aidj/internal/health"
	"github.com/airwavefm/aidj/internal/observe"
	"github.com/airwavefm/aidj/internal/planning"
	"github.com/airwavefm/aidj/internal/resilience"
	"github.com/airwavefm/aidj/internal/scheduler"
	"github.com/airwavefm/aidj/pkg/catalog"
	"github.com/airwavefm/aidj/pkg/catalog/memstore"
	"github.com/airwavefm/aidj/pkg/catalog/postgres"
	"github.com/airwavefm/aidj/pkg/mediacache"
	"github.com/airwavefm/aidj/pkg/provider/embeddings"
	"github.com/airwavefm/aidj/pkg/provider/fetcher"
	"github.com/airwavefm/aidj/pkg/provider/fge"
	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/provider/metadata"
	"github.com/airwavefm/aidj/pkg/provider/tts"
	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/types"
)

// Providers holds one raw capability provider per slot, as constructed by
// main.go from the config [config.Registry]. TTS, TTSFallback, and
// Embeddings are optional (nil when not configured); LLM, Metadata, and
// Fetcher are required.
type Providers struct {
	LLM         llm.Provider
	TTS         tts.Provider
	TTSFallback tts.Provider
	Metadata    metadata.Provider
	Fetcher     fetcher.Provider
	Embeddings  embeddings.Provider
}

// App owns every subsystem's lifetime and drives the broadcaster's main loop.
type App struct {
	cfg *config.Config

	store  catalog.Store
	cache  *mediacache.Cache
	fge    fge.Provider
	graph  *planning.Graph
	sched  *scheduler.Scheduler
	queue  *segment.Queue
	hub    *Hub
	health *health.Handler

	httpServer *http.Server

	log *slog.Logger

	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option configures an App during construction.
type Option func(*App)

// WithLogger sets the structured logger used for lifecycle diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithCatalogStore overrides the catalog store New would otherwise build
// from cfg.Catalog.PostgresDSN. Primarily for tests.
func WithCatalogStore(store catalog.Store) Option {
	return func(a *App) { a.store = store }
}

// WithFGE overrides the Filter-Graph Executor New would otherwise build from
// an ffmpeg/ffprobe on $PATH. Primarily for tests, where shelling out to a
// real ffmpeg is undesirable.
func WithFGE(p fge.Provider) Option {
	return func(a *App) { a.fge = p }
}

// noopTTS is used in place of a configured TTS provider when
// cfg.Providers.TTS is empty: every synthesis request is skipped per
// tts.Provider's documented "" -> instrumental-only contract, rather than
// leaving the Planning Graph's TTS field nil.
type noopTTS struct{}

func (noopTTS) Synthesize(context.Context, string, types.VoiceProfile, string) (string, error) {
	return "", nil
}
func (noopTTS) ListVoices(context.Context) ([]types.VoiceProfile, error) { return nil, nil }
func (noopTTS) CloneVoice(context.Context, [][]byte) (*types.VoiceProfile, error) {
	return nil, fmt.Errorf("tts: no voice synthesizer configured")
}

// New builds every subsystem from cfg and providers and returns a ready-to-run
// App. It does not start the scheduler; call Run for that.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers.LLM == nil {
		return nil, fmt.Errorf("app: providers.LLM is required")
	}
	if providers.Metadata == nil {
		return nil, fmt.Errorf("app: providers.Metadata is required")
	}
	if providers.Fetcher == nil {
		return nil, fmt.Errorf("app: providers.Fetcher is required")
	}

	a := &App{
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := newCatalogStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("app: catalog store: %w", err)
		}
		a.store = store
	}

	a.cache = mediacache.New(a.store, cfg.Cache.MaxBytes, a.log)
	a.queue = segment.New(cfg.Session.QueueCapacity)

	fbCfg := resilience.FallbackConfig{}

	llmP := resilience.NewLLMFallback(providers.LLM, cfg.Providers.LLM.Name, fbCfg)

	var ttsP tts.Provider = noopTTS{}
	if providers.TTS != nil {
		tf := resilience.NewTTSFallback(providers.TTS, cfg.Providers.TTS.Name, fbCfg)
		if providers.TTSFallback != nil {
			tf.AddFallback(cfg.Providers.TTSFallback.Name, providers.TTSFallback)
		}
		ttsP = tf
	}

	metaP := resilience.NewMetadataFallback(providers.Metadata, cfg.Providers.Metadata.Name, fbCfg)
	fetchP := resilience.NewFetcherFallback(providers.Fetcher, cfg.Providers.Fetcher.Name, fbCfg)

	fgeP := a.fge
	if fgeP == nil {
		fgeP = fge.NewExecutor("", "")
	}

	voice := types.VoiceProfile{
		ID:       voiceOption(cfg.Providers.TTS.Options),
		Provider: cfg.Providers.TTS.Name,
	}

	budgets := planning.ReasoningBudgets{
		Track:      cfg.Planner.ReasoningBudgets.Track,
		Transition: cfg.Planner.ReasoningBudgets.Transition,
		Speech:     cfg.Planner.ReasoningBudgets.Speech,
	}
	audio := planning.AudioParams{
		CrossfadeDefault:  cfg.Transition.CrossfadeDefault,
		BEndBuffer:        cfg.Transition.BEndBuffer,
		LeadIn:            cfg.Transition.LeadIn,
		VoiceOffset:       cfg.Transition.VoiceOffset,
		Overlap:           cfg.Transition.Overlap,
		DuckLevel:         cfg.Audio.DuckLevel,
		TargetLUFS:        cfg.Audio.TargetLUFS,
		BassCrossoverFreq: float64(cfg.Audio.BassCrossoverFreq),
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = "."
	}

	graphOpts := []planning.Option{
		planning.WithLogger(a.log),
	}
	if providers.Embeddings != nil {
		graphOpts = append(graphOpts, planning.WithEmbeddings(providers.Embeddings))
	}

	a.graph = planning.New(
		llmP, ttsP, metaP, fetchP, fgeP,
		a.store, a.cache, cacheDir,
		voice, budgets, audio,
		graphOpts...,
	)

	a.sched = scheduler.New(a.graph, a.store, a.queue, scheduler.WithLogger(a.log))
	if cfg.Planner.UserContextFile != "" {
		a.log.Warn("app: planner.user_context_file is configured but loading it is not yet wired; using an empty listener context")
	}

	a.hub = NewHub(a.sched, a.log)
	a.graph.Notifier = a.hub

	a.health = health.New(
		health.Checker{Name: "catalog", Check: func(ctx context.Context) error {
			_, err := a.store.TotalCachedBytes(ctx)
			return err
		}},
		health.Checker{Name: "cache", Check: func(ctx context.Context) error {
			_, err := a.cache.Stats(ctx)
			return err
		}},
	)

	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		a.health.Register(mux)
		mux.HandleFunc("/ws", a.hub.ServeHTTP)
		a.httpServer = &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: observe.Middleware(observe.DefaultMetrics())(mux),
		}
		a.closers = append(a.closers, func(ctx context.Context) error {
			return a.httpServer.Shutdown(ctx)
		})
	}

	return a, nil
}

// newCatalogStore selects postgres.NewStore when cfg.Catalog.PostgresDSN is
// set, falling back to the in-memory memstore otherwise — suitable for
// single-process demos and tests.
func newCatalogStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	if cfg.Catalog.PostgresDSN == "" {
		return memstore.New(), nil
	}
	return postgres.NewStore(ctx, cfg.Catalog.PostgresDSN, cfg.Catalog.FeatureDimensions)
}

// voiceOption extracts the "voice_id" string option if present, returning ""
// otherwise.
func voiceOption(opts map[string]any) string {
	if opts == nil {
		return ""
	}
	if v, ok := opts["voice_id"].(string); ok {
		return v
	}
	return ""
}

// Graph returns the underlying Planning Graph, for tests and diagnostics.
func (a *App) Graph() *planning.Graph { return a.graph }

// Scheduler returns the underlying Segment Scheduler, for tests and
// diagnostics.
func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

// CatalogStore returns the underlying catalog store, for tests and
// diagnostics.
func (a *App) CatalogStore() catalog.Store { return a.store }

// Run starts the optional control-plane HTTP server (if cfg.Server.ListenAddr
// is set) and drives the Segment Scheduler until ctx is cancelled. It returns
// ctx's error on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	if a.httpServer != nil {
		go func() {
			a.log.Info("app: control-plane server listening", "addr", a.httpServer.Addr)
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Error("app: control-plane server failed", "error", err)
			}
		}()
	}

	return a.sched.Run(ctx, "")
}

// Shutdown tears down the application in reverse order of construction,
// respecting ctx's deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if cerr := a.closers[i](ctx); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}
