// Package types defines the shared domain value types used across all AI DJ
// packages: tracks, audio features, lyrics analysis, sessions, play history,
// segments, and planner traces. These are the lingua franca between
// providers, the planning graph, and the catalog store — cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// Track is a single piece of music in the catalog.
//
// A Track is created on first metadata ingest and never deleted; LocalPath
// and FilesizeBytes are cleared (empty string and 0) when the media cache
// evicts the file, but the row itself persists.
type Track struct {
	// ID is the stable catalog identifier (a UUID string).
	ID string

	Title       string
	Artist      string
	ReleaseDate time.Time
	Language    string
	Explicit    bool

	// Duration is the track's full playable length.
	Duration time.Duration

	// LocalPath is the absolute path to the cached audio file, or empty when
	// the track is not currently cached.
	LocalPath string

	// FilesizeBytes is the size of the file at LocalPath, or 0 when not cached.
	FilesizeBytes int64

	PlayCount    int
	LastPlayedAt time.Time
}

// Cached reports whether the track currently has a readable local file.
func (t Track) Cached() bool {
	return t.LocalPath != ""
}

// Features holds audio-analysis attributes for a track, set once on first
// metadata fetch. Values follow the common 0–1 normalized scale used by
// music metadata providers, except Tempo (BPM) and LoudnessDB.
type Features struct {
	TrackID string

	Tempo            float64 // BPM
	Key              int     // 0=C .. 11=B, pitch-class notation
	Mode             int     // 0=minor, 1=major
	Energy           float64
	Danceability     float64
	Valence          float64
	LoudnessDB       float64
	Instrumentalness float64

	// Vector is a derived feature embedding (tempo/energy/valence/danceability/
	// instrumentalness, normalized) used for mood-similarity ranking during
	// candidate selection. Populated by the catalog layer, not by providers.
	Vector []float32
}

// LyricsAnalysis holds optional narrative/mood analysis of a track's lyrics,
// set once per track.
type LyricsAnalysis struct {
	TrackID string

	Themes         []string
	Moods          []string
	NarrativeStyle string

	// Scores holds five 0–1 ratings; keys are provider-defined
	// (e.g. "introspection", "aggression", "romance", "nostalgia", "defiance").
	Scores map[string]float64
}

// Session is one continuous broadcast run owned exclusively by a single
// Segment Scheduler instance for its lifetime.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time // zero while active

	// Mode is a free-form label ("autonomous", "requested", ...).
	Mode string
}

// Active reports whether the session has not yet ended.
func (s Session) Active() bool {
	return s.EndedAt.IsZero()
}

// PlayHistoryEntry is an append-only record of a track entering rotation.
// Order within a session equals segment production order.
type PlayHistoryEntry struct {
	ID             int64
	SessionID      string
	TrackID        string
	StartedAt      time.Time
	TransitionKind string // "" for the bootstrap entry
}

// Segment is a rendered, finite audio file handed to the transport. Index is
// strictly increasing within a session.
type Segment struct {
	ID        int64
	SessionID string
	Index     int

	// TrackID is the B-track of the transition this segment carries (or the
	// sole track, for the bootstrap segment).
	TrackID string

	FilePath  string
	Duration  time.Duration
	UsedVoice bool
	CreatedAt time.Time
}

// PlannerTrace is an append-only, best-effort record of one Planner LLM call
// made by a planning-graph stage. Insertion failures are non-fatal.
type PlannerTrace struct {
	ID        int64
	SessionID string
	Stage     string
	Prompt    string
	Response  string
	Model     string

	// ReasoningBudget is the token budget requested for this call (see
	// Config.Planner.ReasoningBudgets).
	ReasoningBudget int
	CreatedAt       time.Time
}

// UserContext carries listener-facing preferences into track selection and
// script writing. Name and FreeformPrompt are optional.
type UserContext struct {
	Name            string
	Preferences     []string
	Mood            float64 // 0–1
	FreeformPrompt  string
}

// TransitionKind enumerates the musical transition shapes the Transition
// Library can render. Any value outside this set must collapse to Blend.
type TransitionKind string

const (
	TransitionBlend       TransitionKind = "blend"
	TransitionCrossfade   TransitionKind = "crossfade"
	TransitionBassSwap    TransitionKind = "bass_swap"
	TransitionFilterSweep TransitionKind = "filter_sweep"
	TransitionEchoOut     TransitionKind = "echo_out"
	TransitionVinylStop   TransitionKind = "vinyl_stop"
)

// Valid reports whether k is one of the recognized transition kinds.
func (k TransitionKind) Valid() bool {
	switch k {
	case TransitionBlend, TransitionCrossfade, TransitionBassSwap,
		TransitionFilterSweep, TransitionEchoOut, TransitionVinylStop:
		return true
	default:
		return false
	}
}

// Normalize collapses unknown/unsupported kinds (including the documented
// filter_sweep placeholder's aliasing) to the canonical blend fallback used
// for graph construction. filter_sweep is retained as a distinct label in the
// sidecar metadata even though it builds the same graph as blend.
func (k TransitionKind) Normalize() TransitionKind {
	if !k.Valid() {
		return TransitionBlend
	}
	return k
}
