// Package ensemble fuses normalized estimator outputs into one per-track
// sentiment record.
package ensemble

// Version pins every tunable constant used to produce derived records.
// Changing any value here requires a new ID, so historical TrackScores stay
// reproducible as the ensemble evolves.
type Version struct {
	ID string

	// ArousalBlend is the weight on audio-derived arousal; the remainder
	// goes to emotion-derived arousal.
	ArousalBlend float64

	// TopDrivers caps the emotional-driver list on a daily mood.
	TopDrivers int

	// MinHistory is the number of daily moods required before a forecast
	// is served.
	MinHistory int

	// BaselineWindow is the trailing window, in records, for the rolling
	// anomaly baseline.
	BaselineWindow int

	// AnomalySigma is the threshold multiple of the rolling standard
	// deviation for the anomaly flag.
	AnomalySigma float64
}

// Default is the current ensemble version.
func Default() Version {
	return Version{
		ID:             "ens-v1",
		ArousalBlend:   0.5,
		TopDrivers:     5,
		MinHistory:     14,
		BaselineWindow: 30,
		AnomalySigma:   2,
	}
}
