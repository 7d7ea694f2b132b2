package planning

import (
	"context"
	"testing"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/types"
)

func TestRunSteadyRendersAndEnqueuesTheNextSegment(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	trackA := cachedTrackFixture("trk-a", "Four Tet", "Baby", 180*time.Second)
	trackB := cachedTrackFixture("trk-b", "Floating Points", "Silhouettes I, II, III", 189*time.Second)
	if err := h.Store.UpsertTrack(ctx, trackA); err != nil {
		t.Fatal(err)
	}
	if err := h.Store.UpsertTrack(ctx, trackB); err != nil {
		t.Fatal(err)
	}

	h.LLM.CompleteResponse = &llm.CompletionResponse{
		Content: `{"track_id":"trk-b","rationale":"keeps the tempo"}`,
	}
	h.TTS.SynthesizeResult = "/cache/voice-1.mp3"
	h.FGE.ProbeDurationResult = map[string]time.Duration{
		"/cache/voice-1.mp3":             6 * time.Second,
		"/cache/segment-sess-1-0001.mp3": 180375 * time.Millisecond,
	}

	notifier := &recordingNotifier{}
	h.Graph.Notifier = notifier

	queue := segment.New(4)
	defer queue.Close()

	seg, err := h.Graph.RunSteady(ctx, "sess-1", "trk-a", 1, types.UserContext{Name: "Sam"}, queue)
	if err != nil {
		t.Fatalf("RunSteady returned error: %v", err)
	}
	if seg.TrackID != "trk-b" {
		t.Fatalf("expected trk-b to be the carried-forward track, got %q", seg.TrackID)
	}
	if seg.Index != 1 {
		t.Fatalf("expected index 1, got %d", seg.Index)
	}
	if len(notifier.segments) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.segments))
	}
	if len(h.FGE.RunCalls) != 1 {
		t.Fatalf("expected exactly one FGE.Run call, got %d", len(h.FGE.RunCalls))
	}

	handle, err := queue.ConsumeHead(ctx)
	if err != nil {
		t.Fatalf("ConsumeHead returned error: %v", err)
	}
	if handle.TrackID != "trk-b" {
		t.Fatalf("unexpected handle: %+v", handle)
	}
}

func TestRunSteadyFailsWhenTrackAIsMissingFromCatalog(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	trackB := cachedTrackFixture("trk-b", "Floating Points", "Silhouettes I, II, III", 189*time.Second)
	if err := h.Store.UpsertTrack(ctx, trackB); err != nil {
		t.Fatal(err)
	}

	queue := segment.New(4)
	defer queue.Close()

	_, err := h.Graph.RunSteady(ctx, "sess-1", "trk-a-missing", 1, types.UserContext{}, queue)
	if err == nil {
		t.Fatal("expected an error when track A cannot be resolved from the catalog")
	}
	var perr *Error
	if !asPlanningError(err, &perr) {
		t.Fatalf("expected a *planning.Error, got %T: %v", err, err)
	}
	if perr.Kind != FailureNoCandidate {
		t.Fatalf("expected FailureNoCandidate, got %s", perr.Kind)
	}
}
