package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/airwavefm/aidj/pkg/segment"
	"github.com/airwavefm/aidj/pkg/types"
)

// persistSegmentAndHistory implements persist_segment_and_history: it writes
// the segment row and the play-history row, then increments the track's play
// count, all before the segment is enqueued. A failed segment or play-history
// insert is fatal (FailurePersistFailed); a failed play-count increment is
// logged and does not fail the invocation. Planner-trace failures are handled
// separately and are never fatal.
func (g *Graph) persistSegmentAndHistory(ctx context.Context, sessionID, trackID, filePath string, index int, duration time.Duration, usedVoice bool, transitionKind string) (types.Segment, error) {
	now := time.Now()
	seg := types.Segment{
		SessionID: sessionID,
		Index:     index,
		TrackID:   trackID,
		FilePath:  filePath,
		Duration:  duration,
		UsedVoice: usedVoice,
		CreatedAt: now,
	}
	if err := g.Store.InsertSegment(ctx, seg); err != nil {
		return types.Segment{}, fail(FailurePersistFailed, fmt.Errorf("persist_segment_and_history: insert segment: %w", err))
	}

	if err := g.Store.InsertPlayHistory(ctx, types.PlayHistoryEntry{
		SessionID:      sessionID,
		TrackID:        trackID,
		StartedAt:      now,
		TransitionKind: transitionKind,
	}); err != nil {
		return types.Segment{}, fail(FailurePersistFailed, fmt.Errorf("persist_segment_and_history: insert play history: %w", err))
	}

	if err := g.Store.IncrementPlayCount(ctx, trackID, now); err != nil {
		g.Log.Warn("planning: increment play count failed", "track_id", trackID, "error", err)
	}

	return seg, nil
}

// emitReady implements emit_ready: enqueue the segment handle to the
// Segment Queue, then broadcast the out-of-band notification.
func (g *Graph) emitReady(ctx context.Context, queue *segment.Queue, seg types.Segment) error {
	handle := segment.Handle{
		SessionID: seg.SessionID,
		Index:     seg.Index,
		TrackID:   seg.TrackID,
		FilePath:  seg.FilePath,
		Duration:  seg.Duration,
		UsedVoice: seg.UsedVoice,
	}
	if err := queue.Offer(ctx, handle); err != nil {
		return fmt.Errorf("planning: emit_ready: offer segment: %w", err)
	}
	g.Notifier.NotifySegmentReady(seg)
	return nil
}
