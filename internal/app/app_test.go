package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/airwavefm/aidj/internal/app"
	"github.com/airwavefm/aidj/internal/config"
	"github.com/airwavefm/aidj/pkg/catalog/memstore"
	fetchermock "github.com/airwavefm/aidj/pkg/provider/fetcher/mock"
	fgemock "github.com/airwavefm/aidj/pkg/provider/fge/mock"
	llmmock "github.com/airwavefm/aidj/pkg/provider/llm/mock"
	metadatamock "github.com/airwavefm/aidj/pkg/provider/metadata/mock"
	ttsmock "github.com/airwavefm/aidj/pkg/provider/tts/mock"
)

// validConfig returns a config.Config that satisfies config.Validate and has
// applyDefaults-equivalent values filled in by hand, since these tests build
// the config in Go rather than via LoadFromReader.
func validConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			LLM:      config.ProviderEntry{Name: "mock"},
			TTS:      config.ProviderEntry{Name: "mock"},
			Metadata: config.ProviderEntry{Name: "mock"},
			Fetcher:  config.ProviderEntry{Name: "mock"},
		},
		Audio: config.AudioConfig{SampleRate: 44100, DuckLevel: 0.45},
		Session: config.SessionConfig{
			QueueCapacity: 5,
		},
	}
}

func TestNewRequiresLLMMetadataAndFetcher(t *testing.T) {
	ctx := context.Background()
	cfg := validConfig()

	if _, err := app.New(ctx, cfg, &app.Providers{}); err == nil {
		t.Fatal("expected New to reject a Providers with no LLM/Metadata/Fetcher")
	}

	providers := &app.Providers{
		LLM:      &llmmock.Provider{},
		Metadata: &metadatamock.Provider{},
		Fetcher:  &fetchermock.Provider{},
	}
	a, err := app.New(ctx, cfg, providers, app.WithFGE(&fgemock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Graph() == nil {
		t.Fatal("expected a non-nil Planning Graph")
	}
	if a.Scheduler() == nil {
		t.Fatal("expected a non-nil Scheduler")
	}
}

func TestNewUsesInMemoryCatalogByDefault(t *testing.T) {
	ctx := context.Background()
	cfg := validConfig()
	providers := &app.Providers{
		LLM:      &llmmock.Provider{},
		TTS:      &ttsmock.Provider{},
		Metadata: &metadatamock.Provider{},
		Fetcher:  &fetchermock.Provider{},
	}

	a, err := app.New(ctx, cfg, providers, app.WithFGE(&fgemock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.CatalogStore().(*memstore.Store); !ok {
		t.Fatalf("expected the in-memory catalog store when Catalog.PostgresDSN is empty, got %T", a.CatalogStore())
	}
}

func TestNewAcceptsInjectedCatalogStore(t *testing.T) {
	ctx := context.Background()
	cfg := validConfig()
	store := memstore.New()
	providers := &app.Providers{
		LLM:      &llmmock.Provider{},
		Metadata: &metadatamock.Provider{},
		Fetcher:  &fetchermock.Provider{},
	}

	a, err := app.New(ctx, cfg, providers, app.WithCatalogStore(store), app.WithFGE(&fgemock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.CatalogStore() != store {
		t.Fatal("expected WithCatalogStore to override the default in-memory store")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	ctx := context.Background()
	cfg := validConfig()
	providers := &app.Providers{
		LLM:      &llmmock.Provider{},
		Metadata: &metadatamock.Provider{},
		Fetcher:  &fetchermock.Provider{},
	}

	a, err := app.New(ctx, cfg, providers, app.WithFGE(&fgemock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := a.Run(runCtx); err == nil {
		t.Fatal("expected Run to return an error on context cancellation")
	}
}
