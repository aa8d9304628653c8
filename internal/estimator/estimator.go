// Package estimator defines the contract between the scoring pipeline and the
// sentiment/emotion estimators, and normalizes their heterogeneous raw
// payloads into one common schema.
package estimator

import "context"

// Category is one of the fixed emotion categories. Intensities are
// multi-label: they do not need to sum to 1.
type Category string

const (
	Joy      Category = "joy"
	Sadness  Category = "sadness"
	Anger    Category = "anger"
	Fear     Category = "fear"
	Surprise Category = "surprise"
	Disgust  Category = "disgust"
	Optimism Category = "optimism"
	Love     Category = "love"
)

// Categories lists every category, in declaration order.
var Categories = []Category{Joy, Sadness, Anger, Fear, Surprise, Disgust, Optimism, Love}

// Priority is the tie-break order for dominant-emotion selection. Positive,
// actionable categories are surfaced first.
var Priority = []Category{Joy, Optimism, Love, Surprise, Sadness, Fear, Disgust, Anger}

// AudioFeatures are the provider-supplied audio descriptors for a track.
type AudioFeatures struct {
	Valence  float64 // [0, 1], musical positiveness
	Energy   float64 // [0, 1]
	Tempo    float64 // BPM
	Loudness float64 // dB, typically [-60, 0]
	Mode     int     // 1 = major, 0 = minor
}

// Input is what an estimator gets to look at for one track.
type Input struct {
	TrackID      string
	LyricText    string // empty for instrumental tracks
	Language     string
	Instrumental bool
	Audio        *AudioFeatures // nil when the provider has no features
}

// Output is the normalized result of one estimator for one track.
type Output struct {
	Estimator  string
	Version    string
	Polarity   *float64             // nil means the estimator abstained
	Emotions   map[Category]float64 // each in [0, 1]; absent = not exposed
	Confidence float64              // [0, 1]
}

// Abstains reports whether this output contributes no polarity signal.
func (o Output) Abstains() bool {
	return o.Polarity == nil
}

// Estimator is a single sentiment or emotion source. Implementations wrap
// remote inference services or local feature heuristics; each is
// independently reachable and independently failable.
type Estimator interface {
	ID() string
	Version() string
	Score(ctx context.Context, in Input) (Raw, error)
}

// Raw is the estimator-specific payload before normalization. The three
// variants cover rule-based polarity scorers, label classifiers, and
// multi-label emotion classifiers.
type Raw interface {
	isRaw()
}

// PolarityRaw is the payload of a rule-based estimator: a ready-made
// polarity scalar in [-1, 1].
type PolarityRaw struct {
	Polarity   float64
	Confidence float64
}

// LabelRaw is the payload of a classifier estimator: a probability
// distribution over sentiment labels.
type LabelRaw struct {
	Labels []LabelProb
}

// LabelProb is one label with its probability.
type LabelProb struct {
	Label string
	Prob  float64
}

// EmotionRaw is the payload of a multi-label emotion classifier:
// independent per-category probabilities.
type EmotionRaw struct {
	Scores     map[string]float64
	Confidence float64
}

func (PolarityRaw) isRaw() {}
func (LabelRaw) isRaw()    {}
func (EmotionRaw) isRaw()  {}
