package estimator

import (
	"context"
	"math"
	"testing"
)

func TestAudioScore(t *testing.T) {
	a := NewAudio()
	raw, err := a.Score(context.Background(), Input{
		TrackID: "t1",
		Audio:   &AudioFeatures{Valence: 0.9, Mode: 1},
	})
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	p, ok := raw.(PolarityRaw)
	if !ok {
		t.Fatalf("Expected PolarityRaw, got %T", raw)
	}
	if math.Abs(p.Polarity-0.8) > 1e-9 {
		t.Errorf("Polarity = %v, want 0.8", p.Polarity)
	}
	if math.Abs(p.Confidence-0.72) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.72", p.Confidence)
	}
}

func TestAudioScore_minorMode(t *testing.T) {
	a := NewAudio()
	raw, err := a.Score(context.Background(), Input{
		TrackID: "t1",
		Audio:   &AudioFeatures{Valence: 0.5, Mode: 0},
	})
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	p := raw.(PolarityRaw)
	if math.Abs(p.Polarity - -0.1) > 1e-9 {
		t.Errorf("Polarity = %v, want -0.1 for minor mode at neutral valence", p.Polarity)
	}
}

func TestAudioScore_noFeatures(t *testing.T) {
	a := NewAudio()
	if _, err := a.Score(context.Background(), Input{TrackID: "t1"}); err == nil {
		t.Fatal("Expected error without audio features")
	}
}
