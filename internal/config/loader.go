package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anyllm"},
	"tts":        {"openai", "elevenlabs"},
	"metadata":   {"http"},
	"fetcher":    {"http"},
	"embeddings": {"openai", "ollama"},
}

// Default values applied by [Load]/[LoadFromReader] to any zero-valued field
// that spec.md §6 names a default for.
const (
	DefaultCacheMaxBytes    = 50 * 1 << 30 // 50 GB
	DefaultSampleRate       = 44100
	DefaultTargetLUFS       = -14.0
	DefaultBassCrossover    = 250
	DefaultDuckLevel        = 0.45
	DefaultCrossfade        = 10 * time.Second
	DefaultBEndBuffer       = 20 * time.Second
	DefaultLeadIn           = 12 * time.Second
	DefaultVoiceOffset      = 5 * time.Second
	DefaultOverlap          = 750 * time.Millisecond
	DefaultReasoningTrack      = 2000
	DefaultReasoningTransition = 1500
	DefaultReasoningSpeech     = 3500
	DefaultMaxGraphTextLength  = 2000
	DefaultQueueCapacity       = 5
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies spec.md §6 defaults to
// any zero-valued field, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills every zero-valued field spec.md §6 names a default for.
func applyDefaults(cfg *Config) {
	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = DefaultCacheMaxBytes
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.TargetLUFS == 0 {
		cfg.Audio.TargetLUFS = DefaultTargetLUFS
	}
	if cfg.Audio.BassCrossoverFreq == 0 {
		cfg.Audio.BassCrossoverFreq = DefaultBassCrossover
	}
	if cfg.Audio.DuckLevel == 0 {
		cfg.Audio.DuckLevel = DefaultDuckLevel
	}
	if cfg.Transition.CrossfadeDefault == 0 {
		cfg.Transition.CrossfadeDefault = DefaultCrossfade
	}
	if cfg.Transition.BEndBuffer == 0 {
		cfg.Transition.BEndBuffer = DefaultBEndBuffer
	}
	if cfg.Transition.LeadIn == 0 {
		cfg.Transition.LeadIn = DefaultLeadIn
	}
	if cfg.Transition.VoiceOffset == 0 {
		cfg.Transition.VoiceOffset = DefaultVoiceOffset
	}
	if cfg.Transition.Overlap == 0 {
		cfg.Transition.Overlap = DefaultOverlap
	}
	if cfg.Planner.ReasoningBudgets.Track == 0 {
		cfg.Planner.ReasoningBudgets.Track = DefaultReasoningTrack
	}
	if cfg.Planner.ReasoningBudgets.Transition == 0 {
		cfg.Planner.ReasoningBudgets.Transition = DefaultReasoningTransition
	}
	if cfg.Planner.ReasoningBudgets.Speech == 0 {
		cfg.Planner.ReasoningBudgets.Speech = DefaultReasoningSpeech
	}
	if cfg.Planner.MaxGraphTextLength == 0 {
		cfg.Planner.MaxGraphTextLength = DefaultMaxGraphTextLength
	}
	if cfg.Session.QueueCapacity == 0 {
		cfg.Session.QueueCapacity = DefaultQueueCapacity
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)
	validateProviderName("metadata", cfg.Providers.Metadata.Name)
	validateProviderName("fetcher", cfg.Providers.Fetcher.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm is required: the Planning Graph cannot select tracks or write scripts without a Planner LLM"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is empty; segments will render without a voice intro/transition script")
	}
	if cfg.Providers.Fetcher.Name == "" {
		errs = append(errs, errors.New("providers.fetcher is required: the Track Fetcher has no backend to download audio from"))
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Catalog.FeatureDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but catalog.feature_dimensions is not set; mood-similarity ranking is disabled")
	}

	if cfg.Audio.SampleRate != 44100 && cfg.Audio.SampleRate != 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is invalid; valid values: 44100, 48000", cfg.Audio.SampleRate))
	}
	if cfg.Audio.DuckLevel < 0 || cfg.Audio.DuckLevel > 1 {
		errs = append(errs, fmt.Errorf("audio.duck_level %.2f is out of range [0, 1]", cfg.Audio.DuckLevel))
	}
	if cfg.Session.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("session.queue_capacity %d must be positive", cfg.Session.QueueCapacity))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
