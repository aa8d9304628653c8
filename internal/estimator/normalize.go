package estimator

import (
	"fmt"
	"strings"
)

// NormalizationError marks a malformed estimator payload. Callers treat the
// estimator as abstaining; it is never a pipeline failure.
type NormalizationError struct {
	Estimator string
	Reason    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalizing %s output: %s", e.Estimator, e.Reason)
}

// labelPolarity maps classifier sentiment labels to polarity anchors. The
// continuous polarity is the probability-weighted sum over these anchors.
var labelPolarity = map[string]float64{
	"positive": 1,
	"neutral":  0,
	"negative": -1,
	// cardiffnlp-style opaque labels, in their documented order
	"label_2": 1,
	"label_1": 0,
	"label_0": -1,
}

// emotionAlias folds fine-grained emotion labels into the fixed categories.
// Mirrors the GoEmotions label set.
var emotionAlias = map[string]Category{
	"joy":            Joy,
	"sadness":        Sadness,
	"anger":          Anger,
	"fear":           Fear,
	"surprise":       Surprise,
	"disgust":        Disgust,
	"optimism":       Optimism,
	"love":           Love,
	"admiration":     Love,
	"amusement":      Joy,
	"approval":       Optimism,
	"caring":         Love,
	"desire":         Love,
	"excitement":     Joy,
	"gratitude":      Joy,
	"pride":          Joy,
	"relief":         Joy,
	"disappointment": Sadness,
	"embarrassment":  Sadness,
	"grief":          Sadness,
	"nervousness":    Fear,
	"remorse":        Sadness,
	"annoyance":      Anger,
	"disapproval":    Anger,
}

// Normalize maps a raw estimator payload into the common Output schema.
// It is a pure function. A malformed payload yields a NormalizationError
// and no Output.
func Normalize(id, version string, raw Raw) (Output, error) {
	switch r := raw.(type) {
	case PolarityRaw:
		return normalizePolarity(id, version, r)
	case LabelRaw:
		return normalizeLabels(id, version, r)
	case EmotionRaw:
		return normalizeEmotions(id, version, r)
	case nil:
		return Output{}, &NormalizationError{Estimator: id, Reason: "nil payload"}
	default:
		return Output{}, &NormalizationError{Estimator: id, Reason: fmt.Sprintf("unknown payload type %T", raw)}
	}
}

func normalizePolarity(id, version string, r PolarityRaw) (Output, error) {
	if r.Polarity < -1 || r.Polarity > 1 {
		return Output{}, &NormalizationError{
			Estimator: id,
			Reason:    fmt.Sprintf("polarity %v outside [-1, 1]", r.Polarity),
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return Output{}, &NormalizationError{
			Estimator: id,
			Reason:    fmt.Sprintf("confidence %v outside [0, 1]", r.Confidence),
		}
	}
	p := r.Polarity
	return Output{
		Estimator:  id,
		Version:    version,
		Polarity:   &p,
		Confidence: r.Confidence,
	}, nil
}

func normalizeLabels(id, version string, r LabelRaw) (Output, error) {
	if len(r.Labels) == 0 {
		return Output{}, &NormalizationError{Estimator: id, Reason: "empty label distribution"}
	}

	var polarity float64
	var topProb float64
	for _, l := range r.Labels {
		if l.Prob < 0 || l.Prob > 1 {
			return Output{}, &NormalizationError{
				Estimator: id,
				Reason:    fmt.Sprintf("probability %v for label %q outside [0, 1]", l.Prob, l.Label),
			}
		}
		anchor, ok := labelPolarity[strings.ToLower(l.Label)]
		if !ok {
			return Output{}, &NormalizationError{
				Estimator: id,
				Reason:    fmt.Sprintf("unknown sentiment label %q", l.Label),
			}
		}
		polarity += anchor * l.Prob
		if l.Prob > topProb {
			topProb = l.Prob
		}
	}
	polarity = clamp(polarity, -1, 1)

	return Output{
		Estimator:  id,
		Version:    version,
		Polarity:   &polarity,
		Confidence: topProb,
	}, nil
}

func normalizeEmotions(id, version string, r EmotionRaw) (Output, error) {
	if len(r.Scores) == 0 {
		return Output{}, &NormalizationError{Estimator: id, Reason: "empty emotion scores"}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return Output{}, &NormalizationError{
			Estimator: id,
			Reason:    fmt.Sprintf("confidence %v outside [0, 1]", r.Confidence),
		}
	}

	emotions := make(map[Category]float64)
	for label, score := range r.Scores {
		if score < 0 || score > 1 {
			return Output{}, &NormalizationError{
				Estimator: id,
				Reason:    fmt.Sprintf("intensity %v for %q outside [0, 1]", score, label),
			}
		}
		cat, ok := emotionAlias[strings.ToLower(label)]
		if !ok {
			// Labels with no mapping (e.g. "curiosity") carry no signal here.
			continue
		}
		if score > emotions[cat] {
			emotions[cat] = score
		}
	}
	if len(emotions) == 0 {
		return Output{}, &NormalizationError{Estimator: id, Reason: "no mappable emotion labels"}
	}

	conf := r.Confidence
	if conf == 0 {
		conf = 1
	}

	// Emotion classifiers carry no polarity: they abstain from the
	// polarity mean and contribute only the emotion vector.
	return Output{
		Estimator:  id,
		Version:    version,
		Emotions:   emotions,
		Confidence: conf,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
