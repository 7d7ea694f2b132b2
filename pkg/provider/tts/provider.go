// Package tts defines the Voice Synthesizer (VS) capability: rendering a
// finished line of DJ dialogue to a single audio file, blocking.
//
// Unlike a conversational assistant's token-by-token streaming synthesis,
// the DJ persona's script is written in full by the Planning Graph before
// synthesis ever starts, so there is nothing to pipeline against — the
// capability is a plain call-and-wait.
package tts

import (
	"context"

	"github.com/airwavefm/aidj/pkg/types"
)

// Provider is the abstraction over any TTS backend (OpenAI, ElevenLabs, or a
// mock).
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders text as speech using voice, writing the resulting
	// audio file into destDir and returning its path. An empty text should
	// return ("", nil) rather than an error: the Planning Graph's SPEAKING
	// stage treats a "" path as "skip the voice segment, render instrumental
	// only" per the bootstrap/steady shape's voiced-transition fallback.
	Synthesize(ctx context.Context, text string, voice types.VoiceProfile, destDir string) (string, error)

	// ListVoices returns all voice profiles available from this provider.
	ListVoices(ctx context.Context) ([]types.VoiceProfile, error)

	// CloneVoice creates a new voice profile by training on the supplied
	// audio samples. Not all backends support this; those that don't must
	// return a descriptive error rather than panic.
	CloneVoice(ctx context.Context, samples [][]byte) (*types.VoiceProfile, error)
}
