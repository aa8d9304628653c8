package estimator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteScore_polarity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Decoding request: %v", err)
		}
		if req.Text != "some lyrics" {
			t.Errorf("Request text = %q, want %q", req.Text, "some lyrics")
		}
		p := 0.5
		json.NewEncoder(w).Encode(scoreResponse{Polarity: &p, Confidence: 0.8})
	}))
	defer server.Close()

	est := NewRemote("vader", "1", KindPolarity, server.URL, time.Second)
	raw, err := est.Score(context.Background(), Input{TrackID: "t1", LyricText: "some lyrics"})
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	p, ok := raw.(PolarityRaw)
	if !ok {
		t.Fatalf("Expected PolarityRaw, got %T", raw)
	}
	if p.Polarity != 0.5 || p.Confidence != 0.8 {
		t.Errorf("Got %+v, want polarity 0.5 confidence 0.8", p)
	}
}

func TestRemoteScore_retriesServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(scoreResponse{Scores: map[string]float64{"joy": 0.9}, Confidence: 1})
	}))
	defer server.Close()

	est := NewRemote("goemotions", "1", KindEmotions, server.URL, time.Second)
	raw, err := est.Score(context.Background(), Input{TrackID: "t1", LyricText: "la la"})
	if err != nil {
		t.Fatalf("Score error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("Server saw %d calls, want 3", calls)
	}
	e, ok := raw.(EmotionRaw)
	if !ok {
		t.Fatalf("Expected EmotionRaw, got %T", raw)
	}
	if e.Scores["joy"] != 0.9 {
		t.Errorf("Scores = %v, want joy 0.9", e.Scores)
	}
}

func TestRemoteScore_doesNotRetryClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	est := NewRemote("vader", "1", KindPolarity, server.URL, time.Second)
	if _, err := est.Score(context.Background(), Input{TrackID: "t1", LyricText: "x"}); err == nil {
		t.Fatal("Expected error for status 400")
	}
	if calls != 1 {
		t.Errorf("Server saw %d calls, want 1 (no retry on 4xx)", calls)
	}
}

func TestRemoteScore_noLyrics(t *testing.T) {
	est := NewRemote("vader", "1", KindPolarity, "http://unused.invalid", time.Second)
	if _, err := est.Score(context.Background(), Input{TrackID: "t1"}); err == nil {
		t.Fatal("Expected error for empty lyric text")
	}
}
