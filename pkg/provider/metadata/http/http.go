// Package http implements metadata.Provider against a JSON HTTP metadata
// service (a label/aggregator API exposing a single search endpoint).
//
// Only the standard library is used — no additional dependency is required
// beyond Go's net/http and encoding/json, matching the teacher's own
// embeddings/ollama backend.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/airwavefm/aidj/pkg/provider/metadata"
	"github.com/airwavefm/aidj/pkg/types"
)

var _ metadata.Provider = (*Provider)(nil)

// Provider implements metadata.Provider against an HTTP search endpoint that
// returns a JSON array of candidate matches; the first result is taken as
// authoritative.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTimeout sets a per-request HTTP timeout. Zero/negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithHTTPClient overrides the underlying *http.Client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// New returns a Provider querying baseURL (e.g. "https://metadata.example.com")
// with apiKey sent as a bearer token.
func New(baseURL, apiKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type searchResponse struct {
	Results []struct {
		Title            string  `json:"title"`
		Artist           string  `json:"artist"`
		ReleaseDate      string  `json:"release_date"`
		Language         string  `json:"language"`
		Explicit         bool    `json:"explicit"`
		DurationSeconds  float64 `json:"duration_seconds"`
		Tempo            float64 `json:"tempo"`
		Key              int     `json:"key"`
		Mode             int     `json:"mode"`
		Energy           float64 `json:"energy"`
		Danceability     float64 `json:"danceability"`
		Valence          float64 `json:"valence"`
		LoudnessDB       float64 `json:"loudness_db"`
		Instrumentalness float64 `json:"instrumentalness"`
	} `json:"results"`
}

// Lookup implements metadata.Provider.
func (p *Provider) Lookup(ctx context.Context, q metadata.Query) (metadata.Result, error) {
	u, err := url.Parse(p.baseURL + "/v1/search")
	if err != nil {
		return metadata.Result{}, fmt.Errorf("metadata http: build url: %w", err)
	}
	query := u.Query()
	if q.Title != "" {
		query.Set("title", q.Title)
	}
	if q.Artist != "" {
		query.Set("artist", q.Artist)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return metadata.Result{}, fmt.Errorf("metadata http: build request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return metadata.Result{}, fmt.Errorf("metadata http: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return metadata.Result{}, fmt.Errorf("metadata http: unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return metadata.Result{}, fmt.Errorf("metadata http: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return metadata.Result{}, fmt.Errorf("metadata http: %w", metadata.ErrNotFound)
	}

	r := parsed.Results[0]
	result := metadata.Result{
		Track: types.Track{
			Title:    r.Title,
			Artist:   r.Artist,
			Language: r.Language,
			Explicit: r.Explicit,
			Duration: time.Duration(r.DurationSeconds * float64(time.Second)),
		},
		Features: types.Features{
			Tempo:            r.Tempo,
			Key:              r.Key,
			Mode:             r.Mode,
			Energy:           r.Energy,
			Danceability:     r.Danceability,
			Valence:          r.Valence,
			LoudnessDB:       r.LoudnessDB,
			Instrumentalness: r.Instrumentalness,
		},
	}
	if t, err := time.Parse("2006-01-02", r.ReleaseDate); err == nil {
		result.Track.ReleaseDate = t
	}
	return result, nil
}
