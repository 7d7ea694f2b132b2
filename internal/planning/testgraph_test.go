package planning

import (
	"io"
	"log/slog"
	"time"

	llmmock "github.com/airwavefm/aidj/pkg/provider/llm/mock"

	"github.com/airwavefm/aidj/pkg/catalog/memstore"
	fetchermock "github.com/airwavefm/aidj/pkg/provider/fetcher/mock"
	fgemock "github.com/airwavefm/aidj/pkg/provider/fge/mock"
	metadatamock "github.com/airwavefm/aidj/pkg/provider/metadata/mock"
	ttsmock "github.com/airwavefm/aidj/pkg/provider/tts/mock"

	"github.com/airwavefm/aidj/pkg/mediacache"
	"github.com/airwavefm/aidj/pkg/types"
)

// testHarness bundles a Graph with its mock dependencies, all reachable for
// per-test configuration and call-record assertions.
type testHarness struct {
	LLM      *llmmock.Provider
	TTS      *ttsmock.Provider
	Metadata *metadatamock.Provider
	Fetcher  *fetchermock.Provider
	FGE      *fgemock.Provider
	Store    *memstore.Store
	Graph    *Graph
}

func newHarness() *testHarness {
	store := memstore.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &testHarness{
		LLM:      &llmmock.Provider{},
		TTS:      &ttsmock.Provider{},
		Metadata: &metadatamock.Provider{},
		Fetcher:  &fetchermock.Provider{},
		FGE:      &fgemock.Provider{ProbeDurationDefault: 180 * time.Second},
		Store:    store,
	}
	cache := mediacache.New(store, 10<<30, log)

	h.Graph = New(
		h.LLM, h.TTS, h.Metadata, h.Fetcher, h.FGE, store, cache, "/cache",
		types.VoiceProfile{ID: "v1", Name: "Test Voice"},
		ReasoningBudgets{Track: 256, Transition: 256, Speech: 256},
		AudioParams{BitrateKbps: 128},
		WithLogger(log),
	)
	return h
}

func cachedTrackFixture(id, artist, title string, duration time.Duration) types.Track {
	return types.Track{
		ID:            id,
		Artist:        artist,
		Title:         title,
		Duration:      duration,
		LocalPath:     "/cache/" + id + ".mp3",
		FilesizeBytes: 4096,
	}
}
