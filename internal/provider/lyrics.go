package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
)

// HTTPLyrics fetches lyrics from an lrclib-style JSON API: a GET with
// artist and track name, 404 meaning not found.
type HTTPLyrics struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPLyrics builds a lyrics provider against the given base URL.
func NewHTTPLyrics(baseURL string, timeout time.Duration) *HTTPLyrics {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLyrics{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type lyricsResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	Language     string `json:"language"`
	Instrumental bool   `json:"instrumental"`
}

// Get fetches lyrics for a track. Returns (nil, nil) when the provider has
// none; transient server errors are retried.
func (h *HTTPLyrics) Get(ctx context.Context, trackID, name, artist string) (*LyricsResult, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("artist_name", artist)
	q.Set("track_name", name)
	reqURL := h.baseURL + "?" + q.Encode()

	var parsed lyricsResponse
	notFound := false
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return err
			}
			resp, err := h.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				notFound = true
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode}
			}
			return json.NewDecoder(resp.Body).Decode(&parsed)
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if serr, ok := err.(*statusError); ok {
				return serr.code/100 == 5 || serr.code == http.StatusTooManyRequests
			}
			return ctx.Err() == nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching lyrics for %q: %w", trackID, err)
	}
	if notFound {
		return nil, nil
	}

	return &LyricsResult{
		Text:         parsed.PlainLyrics,
		Language:     parsed.Language,
		Instrumental: parsed.Instrumental,
		Source:       h.baseURL,
	}, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lyrics service returned status %d", e.code)
}
