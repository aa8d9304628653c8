package estimator

import (
	"context"
	"fmt"
	"math"
)

// Audio derives a sentiment signal from the provider-supplied audio
// descriptors. It is the only estimator that can score instrumental tracks.
type Audio struct{}

// NewAudio returns the audio-feature estimator.
func NewAudio() *Audio { return &Audio{} }

func (a *Audio) ID() string      { return "audio-features" }
func (a *Audio) Version() string { return "1" }

// Score maps musical valence onto polarity. Minor mode nudges the signal
// down slightly. Confidence grows with distance from the neutral midpoint,
// since an extreme valence is a stronger statement than 0.5.
func (a *Audio) Score(ctx context.Context, in Input) (Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Audio == nil {
		return nil, fmt.Errorf("%s: no audio features for track %s", a.ID(), in.TrackID)
	}

	polarity := 2*in.Audio.Valence - 1
	if in.Audio.Mode == 0 {
		polarity -= 0.1
	}
	if polarity < -1 {
		polarity = -1
	} else if polarity > 1 {
		polarity = 1
	}

	confidence := 0.4 + 0.4*math.Abs(2*in.Audio.Valence-1)

	return PolarityRaw{Polarity: polarity, Confidence: confidence}, nil
}
