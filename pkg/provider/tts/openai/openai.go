// Package openai provides a Voice Synthesizer backed by OpenAI's
// text-to-speech REST endpoint. Plain net/http is used here rather than the
// openai-go SDK client (used elsewhere for completions): the SDK's audio
// surface is not otherwise exercised by this module, and the REST contract
// for /v1/audio/speech is stable and simple enough not to need it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/tts"
	"github.com/airwavefm/aidj/pkg/types"
)

const (
	speechEndpoint = "https://api.openai.com/v1/audio/speech"
	defaultModel   = "tts-1"
	defaultFormat  = "mp3"
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the OpenAI TTS model (e.g. "tts-1", "tts-1-hd").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the full speech endpoint URL that requests are posted
// to (default https://api.openai.com/v1/audio/speech).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

var _ tts.Provider = (*Provider)(nil)

// Provider implements the Voice Synthesizer capability backed by OpenAI.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New constructs a new OpenAI Voice Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai tts: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    speechEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
	Format string `json:"response_format"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile, destDir string) (string, error) {
	if text == "" {
		return "", nil
	}
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = "alloy"
	}

	body, err := json.Marshal(speechRequest{
		Model:  p.model,
		Input:  text,
		Voice:  voiceID,
		Format: defaultFormat,
	})
	if err != nil {
		return "", fmt.Errorf("openai tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai tts: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai tts: synthesize: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("openai tts: create dest dir: %w", err)
	}
	destPath := filepath.Join(destDir, "voice-"+strconv.FormatInt(time.Now().UnixNano(), 10)+"."+defaultFormat)
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("openai tts: create dest file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("openai tts: write dest file: %w", err)
	}
	return destPath, nil
}

// ListVoices returns OpenAI's fixed catalog of named voices: unlike
// ElevenLabs, OpenAI does not expose a voice-listing API.
func (p *Provider) ListVoices(_ context.Context) ([]types.VoiceProfile, error) {
	names := []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	voices := make([]types.VoiceProfile, 0, len(names))
	for _, n := range names {
		voices = append(voices, types.VoiceProfile{ID: n, Name: n, Provider: "openai"})
	}
	return voices, nil
}

// CloneVoice is not supported by OpenAI's TTS API.
func (p *Provider) CloneVoice(_ context.Context, samples [][]byte) (*types.VoiceProfile, error) {
	if len(samples) == 0 {
		return nil, errors.New("openai tts: CloneVoice requires at least one sample")
	}
	return nil, errors.New("openai tts: CloneVoice is not supported")
}
