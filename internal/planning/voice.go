package planning

import (
	"context"
	"time"
)

// synthesizedVoice is the SPEAKING stage's result. Path is empty when no
// voice was produced, which is not a failure.
type synthesizedVoice struct {
	Path     string
	Duration time.Duration
}

// synthesizeVoice implements the synthesize_voice stage. A TTS failure is
// non-fatal: it is logged and treated as "no voice for this segment" rather
// than aborting the invocation, per spec.md §4.2.
func (g *Graph) synthesizeVoice(ctx context.Context, script string) synthesizedVoice {
	if script == "" {
		return synthesizedVoice{}
	}

	path, err := g.TTS.Synthesize(ctx, script, g.Voice, g.CacheDir)
	if err != nil || path == "" {
		if err != nil {
			g.Log.Warn("planning: synthesize_voice failed, rendering without voice", "error", err)
		}
		return synthesizedVoice{}
	}

	duration, err := g.FGE.ProbeDuration(ctx, path)
	if err != nil {
		g.Log.Warn("planning: probe voice duration failed, rendering without voice", "error", err)
		return synthesizedVoice{}
	}
	return synthesizedVoice{Path: path, Duration: duration}
}
