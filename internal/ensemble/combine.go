package ensemble

import (
	"fmt"
	"time"

	"github.com/moodsync/mood-tools/internal/estimator"
)

// TrackScore is the fused per-track record for one (track, user, version).
// It is immutable once produced: re-scoring with the same version must yield
// an identical record, and a new version yields a new record.
type TrackScore struct {
	TrackID string
	UserID  string
	Version string

	// Polarity is nil when every estimator abstained; Unscored is then set
	// instead of defaulting to zero, so aggregates are not silently biased
	// toward neutral.
	Polarity *float64
	Unscored bool

	// Emotions holds per-category weighted means. A category with zero
	// contributing estimators is absent, not zero.
	Emotions map[estimator.Category]float64

	Valence   float64 // [-1, 1]
	Arousal   float64 // [-1, 1]
	Agreement float64 // [0, 1], 1 = perfect estimator agreement

	CreatedAt time.Time // set by the store on first write
}

// InsufficientSignalError means a track produced no usable signal at all:
// no estimator output and no audio features. The caller must not persist a
// TrackScore for it.
type InsufficientSignalError struct {
	TrackID string
}

func (e *InsufficientSignalError) Error() string {
	return fmt.Sprintf("no usable signal for track %s", e.TrackID)
}

// Arousal weighting of the audio descriptors, each pre-scaled to [0, 1].
const (
	arousalEnergyWeight = 0.5
	arousalTempoWeight  = 0.3
	arousalLoudWeight   = 0.2
)

// Emotion-derived arousal coefficients, per Russell's circumplex: anger,
// fear, surprise and joy are high-arousal, sadness is low.
var emotionArousalWeight = map[estimator.Category]float64{
	estimator.Anger:    0.9,
	estimator.Fear:     0.8,
	estimator.Surprise: 0.7,
	estimator.Joy:      0.6,
	estimator.Sadness:  -0.5,
}

// Combine fuses the normalized estimator outputs for one track into a
// TrackScore. outputs may be empty when every estimator failed; the track
// can still be scored from audio features alone if the audio estimator
// contributed, and fails with InsufficientSignalError when there is nothing
// to work with.
func Combine(trackID, userID string, outputs []estimator.Output, audio *estimator.AudioFeatures, v Version) (TrackScore, error) {
	if len(outputs) == 0 && audio == nil {
		return TrackScore{}, &InsufficientSignalError{TrackID: trackID}
	}

	score := TrackScore{
		TrackID: trackID,
		UserID:  userID,
		Version: v.ID,
	}

	// Confidence-weighted polarity over the non-abstaining estimators.
	var polSum, weightSum float64
	var polarities, weights []float64
	for _, out := range outputs {
		if out.Abstains() {
			continue
		}
		w := out.Confidence
		if w <= 0 {
			w = 1e-3
		}
		polSum += *out.Polarity * w
		weightSum += w
		polarities = append(polarities, *out.Polarity)
		weights = append(weights, w)
	}

	if weightSum > 0 {
		p := clamp(polSum/weightSum, -1, 1)
		score.Polarity = &p
	} else {
		score.Unscored = true
	}

	score.Agreement = agreement(polarities, weights)
	score.Emotions = combineEmotions(outputs)

	if score.Polarity != nil {
		score.Valence = *score.Polarity
	}
	score.Arousal = combineArousal(audio, score.Emotions, v.ArousalBlend)

	return score, nil
}

// agreement is 1 minus the weighted variance of the polarity values,
// normalized by the maximum variance attainable on [-1, 1].
func agreement(polarities, weights []float64) float64 {
	if len(polarities) < 2 {
		return 1
	}

	var wSum, mean float64
	for i, p := range polarities {
		wSum += weights[i]
		mean += p * weights[i]
	}
	mean /= wSum

	var variance float64
	for i, p := range polarities {
		variance += weights[i] * (p - mean) * (p - mean)
	}
	variance /= wSum

	// Values split between -1 and +1 have variance 1, the maximum.
	return clamp(1-variance, 0, 1)
}

func combineEmotions(outputs []estimator.Output) map[estimator.Category]float64 {
	sums := make(map[estimator.Category]float64)
	wsums := make(map[estimator.Category]float64)
	for _, out := range outputs {
		w := out.Confidence
		if w <= 0 {
			w = 1e-3
		}
		for cat, intensity := range out.Emotions {
			sums[cat] += intensity * w
			wsums[cat] += w
		}
	}
	if len(sums) == 0 {
		return nil
	}
	combined := make(map[estimator.Category]float64, len(sums))
	for cat, s := range sums {
		combined[cat] = clamp(s/wsums[cat], 0, 1)
	}
	return combined
}

// combineArousal blends audio-derived and emotion-derived arousal. When one
// side is missing the other carries the full weight; with neither, arousal
// is 0.
func combineArousal(audio *estimator.AudioFeatures, emotions map[estimator.Category]float64, blend float64) float64 {
	var audioArousal float64
	hasAudio := audio != nil
	if hasAudio {
		energy := clamp(audio.Energy, 0, 1)
		tempo := clamp((audio.Tempo-60)/120, 0, 1)
		loud := clamp((audio.Loudness+60)/60, 0, 1)
		raw := arousalEnergyWeight*energy + arousalTempoWeight*tempo + arousalLoudWeight*loud
		audioArousal = 2*raw - 1
	}

	var emotionArousal float64
	hasEmotions := len(emotions) > 0
	if hasEmotions {
		for cat, w := range emotionArousalWeight {
			if intensity, ok := emotions[cat]; ok {
				emotionArousal += intensity * w
			}
		}
		emotionArousal = clamp(emotionArousal, -1, 1)
	}

	switch {
	case hasAudio && hasEmotions:
		return clamp(blend*audioArousal+(1-blend)*emotionArousal, -1, 1)
	case hasAudio:
		return clamp(audioArousal, -1, 1)
	case hasEmotions:
		return emotionArousal
	default:
		return 0
	}
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
