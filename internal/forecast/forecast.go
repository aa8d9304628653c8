// Package forecast produces a next-period mood forecast with confidence
// bounds, plus an anomaly flag for the issue day against the user's own
// baseline.
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/moodsync/mood-tools/internal/aggregate"
)

// InsufficientHistoryError means forecasting was requested before enough
// daily moods accumulated. It is a typed "not yet available" result; no
// forecast is better than one from too little data.
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("forecast needs %d daily moods, have %d", e.Need, e.Have)
}

// State is the per-user forecasting state.
type State string

const (
	// Cold means history is below the minimum; no forecast is served.
	Cold State = "cold"
	// Warm means forecasts are served and the baseline is maintained.
	Warm State = "warm"
)

// StateFor derives the state from history length. The only way back to Cold
// is an explicit history purge.
func StateFor(have, need int) State {
	if have < need {
		return Cold
	}
	return Warm
}

// Model fits an ordered real-valued series and extrapolates it. The
// contract is point-estimate-from-series; both classical autoregressive
// models and learned sequence models fit behind it.
type Model interface {
	Name() string
	Fit(series []float64)
	Predict(horizon int) float64
}

// Config carries the forecasting constants, pinned by the ensemble version.
type Config struct {
	MinHistory     int
	BaselineWindow int
	AnomalySigma   float64
	Model          Model
}

// Result is one forecast issue. Derived and ephemeral; nothing downstream
// consumes it.
type Result struct {
	UserID   string
	IssueDay time.Time

	Point float64
	Low   float64
	High  float64

	Anomaly          bool
	AnomalyMagnitude float64 // standardized deviation of the issue day

	BaselineDays   int
	BaselineMean   float64
	BaselineStdDev float64

	ModelName string
	Version   string
}

// Next forecasts the next-period mood index from an ordered history of
// daily moods, the last of which is the issue day. Fails with
// InsufficientHistoryError below the minimum history length.
func Next(userID string, history []aggregate.DailyMood, cfg Config) (Result, error) {
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 14
	}
	if cfg.BaselineWindow <= 0 {
		cfg.BaselineWindow = 30
	}
	if cfg.AnomalySigma <= 0 {
		cfg.AnomalySigma = 2
	}
	if cfg.Model == nil {
		cfg.Model = NewAR()
	}

	if len(history) < cfg.MinHistory {
		return Result{}, &InsufficientHistoryError{Have: len(history), Need: cfg.MinHistory}
	}

	series := make([]float64, len(history))
	for i, m := range history {
		series[i] = m.Index
	}

	issue := history[len(history)-1]

	cfg.Model.Fit(series)
	point := clamp(cfg.Model.Predict(1), -1, 1)

	resid := holdoutResidualStdDev(cfg.Model, series)
	low := clamp(point-1.96*resid, -1, 1)
	high := clamp(point+1.96*resid, -1, 1)

	// The baseline excludes the issue day: the point being tested must
	// never be part of its own threshold.
	baseline := series[:len(series)-1]
	if len(baseline) > cfg.BaselineWindow {
		baseline = baseline[len(baseline)-cfg.BaselineWindow:]
	}
	mean, stddev := meanStdDev(baseline)

	var anomaly bool
	var magnitude float64
	if stddev > 0 {
		magnitude = (issue.Index - mean) / stddev
		anomaly = math.Abs(magnitude) > cfg.AnomalySigma
	}

	return Result{
		UserID:           userID,
		IssueDay:         issue.Day,
		Point:            point,
		Low:              low,
		High:             high,
		Anomaly:          anomaly,
		AnomalyMagnitude: magnitude,
		BaselineDays:     len(baseline),
		BaselineMean:     mean,
		BaselineStdDev:   stddev,
		ModelName:        cfg.Model.Name(),
		Version:          issue.Version,
	}, nil
}

// holdoutResidualStdDev walks forward over the most recent quarter of the
// series (at least 3 points), refitting on each prefix and measuring the
// one-step error. The interval width scales with this, not a fixed constant.
func holdoutResidualStdDev(m Model, series []float64) float64 {
	holdout := len(series) / 4
	if holdout < 3 {
		holdout = 3
	}
	if holdout >= len(series) {
		holdout = len(series) - 1
	}

	var residuals []float64
	for i := len(series) - holdout; i < len(series); i++ {
		if i < 2 {
			continue
		}
		m.Fit(series[:i])
		pred := m.Predict(1)
		residuals = append(residuals, series[i]-pred)
	}
	// Restore the fit over the full series for the caller.
	m.Fit(series)

	if len(residuals) == 0 {
		return 0
	}
	_, stddev := meanStdDev(residuals)
	if stddev == 0 {
		// Flat history: keep a nominal width so the interval is not a point.
		stddev = 0.01
	}
	return stddev
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var varSum float64
	for _, v := range values {
		varSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varSum / float64(len(values)))
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
