package estimator

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizePolarity(t *testing.T) {
	out, err := Normalize("vader", "1", PolarityRaw{Polarity: 0.6, Confidence: 0.9})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if out.Abstains() {
		t.Fatal("Expected a polarity, got abstention")
	}
	if *out.Polarity != 0.6 {
		t.Errorf("Polarity = %v, want 0.6", *out.Polarity)
	}
	if out.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", out.Confidence)
	}
	if out.Estimator != "vader" || out.Version != "1" {
		t.Errorf("Identity = %s/%s, want vader/1", out.Estimator, out.Version)
	}
}

func TestNormalizePolarity_outOfRange(t *testing.T) {
	_, err := Normalize("vader", "1", PolarityRaw{Polarity: 1.5, Confidence: 0.9})
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NormalizationError, got %v", err)
	}
	if nerr.Estimator != "vader" {
		t.Errorf("Estimator = %q, want vader", nerr.Estimator)
	}
}

func TestNormalizeLabels(t *testing.T) {
	out, err := Normalize("roberta", "1", LabelRaw{Labels: []LabelProb{
		{Label: "positive", Prob: 0.7},
		{Label: "neutral", Prob: 0.2},
		{Label: "negative", Prob: 0.1},
	}})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	// 0.7*1 + 0.2*0 + 0.1*-1 = 0.6
	if math.Abs(*out.Polarity-0.6) > 1e-9 {
		t.Errorf("Polarity = %v, want 0.6", *out.Polarity)
	}
	if out.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want top probability 0.7", out.Confidence)
	}
}

func TestNormalizeLabels_opaqueLabels(t *testing.T) {
	out, err := Normalize("roberta", "1", LabelRaw{Labels: []LabelProb{
		{Label: "LABEL_0", Prob: 0.8},
		{Label: "LABEL_1", Prob: 0.1},
		{Label: "LABEL_2", Prob: 0.1},
	}})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if math.Abs(*out.Polarity - -0.7) > 1e-9 {
		t.Errorf("Polarity = %v, want -0.7", *out.Polarity)
	}
}

func TestNormalizeLabels_badProbability(t *testing.T) {
	_, err := Normalize("roberta", "1", LabelRaw{Labels: []LabelProb{
		{Label: "positive", Prob: 1.3},
	}})
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NormalizationError for probability 1.3, got %v", err)
	}
}

func TestNormalizeLabels_unknownLabel(t *testing.T) {
	_, err := Normalize("roberta", "1", LabelRaw{Labels: []LabelProb{
		{Label: "ambivalent", Prob: 0.5},
	}})
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NormalizationError for unknown label, got %v", err)
	}
}

func TestNormalizeEmotions(t *testing.T) {
	out, err := Normalize("goemotions", "1", EmotionRaw{
		Scores:     map[string]float64{"joy": 0.8, "sadness": 0.1},
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if !out.Abstains() {
		t.Error("Emotion estimators should abstain from polarity")
	}
	if out.Emotions[Joy] != 0.8 {
		t.Errorf("Emotions[joy] = %v, want 0.8", out.Emotions[Joy])
	}
	if out.Emotions[Sadness] != 0.1 {
		t.Errorf("Emotions[sadness] = %v, want 0.1", out.Emotions[Sadness])
	}
}

func TestNormalizeEmotions_aliasesFoldByMax(t *testing.T) {
	out, err := Normalize("goemotions", "1", EmotionRaw{
		Scores: map[string]float64{
			"amusement": 0.3,
			"gratitude": 0.7,
			"joy":       0.5,
			"curiosity": 0.9, // unmapped, carries no signal
		},
		Confidence: 1,
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if out.Emotions[Joy] != 0.7 {
		t.Errorf("Emotions[joy] = %v, want max of aliases 0.7", out.Emotions[Joy])
	}
	if len(out.Emotions) != 1 {
		t.Errorf("Got %d categories, want 1: %v", len(out.Emotions), out.Emotions)
	}
}

func TestNormalizeEmotions_noMappableLabels(t *testing.T) {
	_, err := Normalize("goemotions", "1", EmotionRaw{
		Scores:     map[string]float64{"curiosity": 0.9},
		Confidence: 1,
	})
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NormalizationError, got %v", err)
	}
}

func TestNormalize_nilPayload(t *testing.T) {
	_, err := Normalize("vader", "1", nil)
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NormalizationError for nil payload, got %v", err)
	}
}
