package forecast

// AR is a damped first-order autoregressive model: the next value reverts
// toward the series mean at a rate set by the lag-1 autocorrelation. Short
// memory by construction, which suits a mood index that mean-reverts over
// days rather than trends for months.
type AR struct {
	mean float64
	phi  float64
	last float64
	fit  bool
}

// NewAR returns an untrained AR model.
func NewAR() *AR { return &AR{} }

func (a *AR) Name() string { return "ar1" }

// Fit estimates the mean and lag-1 autocorrelation of the series.
func (a *AR) Fit(series []float64) {
	a.fit = false
	if len(series) == 0 {
		return
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	a.mean = sum / float64(len(series))
	a.last = series[len(series)-1]

	var num, den float64
	for i, v := range series {
		d := v - a.mean
		den += d * d
		if i > 0 {
			num += d * (series[i-1] - a.mean)
		}
	}

	if den > 0 {
		a.phi = num / den
	} else {
		a.phi = 0
	}
	// Damp toward stationarity; a unit root would let the forecast drift.
	if a.phi > 0.98 {
		a.phi = 0.98
	}
	if a.phi < -0.98 {
		a.phi = -0.98
	}
	a.fit = true
}

// Predict extrapolates h steps ahead, reverting toward the mean each step.
func (a *AR) Predict(h int) float64 {
	if !a.fit {
		return 0
	}
	v := a.last
	for i := 0; i < h; i++ {
		v = a.mean + a.phi*(v-a.mean)
	}
	return v
}
