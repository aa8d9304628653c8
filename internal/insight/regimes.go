// Package insight groups a user's daily moods into recurring regimes by
// clustering their mood index and audio averages.
package insight

import (
	"fmt"
	"sort"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/moodsync/mood-tools/internal/aggregate"
)

// Config holds the regime-clustering parameters.
type Config struct {
	NumClusters int // default 3
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{NumClusters: 3}
}

// Regime is a cluster of days with a similar emotional texture.
type Regime struct {
	Name      string
	Days      []time.Time
	MeanIndex float64
	MeanEnergy float64
	StartDay  time.Time
	EndDay    time.Time
}

// dayObservation wraps one daily mood for the clusterer. Coordinates are
// (mood index rescaled to [0, 1], energy average, valence average).
type dayObservation struct {
	mood   aggregate.DailyMood
	coords clusters.Coordinates
}

func (o dayObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o dayObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectRegimes clusters daily moods into regimes. Days without audio
// averages lack two of the three coordinates and are returned as outliers.
func DetectRegimes(moods []aggregate.DailyMood, cfg Config) ([]Regime, []aggregate.DailyMood, error) {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}

	var obs clusters.Observations
	var outliers []aggregate.DailyMood
	for _, m := range moods {
		if m.EnergyAvg == nil || m.ValenceAvg == nil {
			outliers = append(outliers, m)
			continue
		}
		obs = append(obs, dayObservation{
			mood:   m,
			coords: clusters.Coordinates{(m.Index + 1) / 2, *m.EnergyAvg, *m.ValenceAvg},
		})
	}

	if len(obs) < cfg.NumClusters {
		for _, o := range obs {
			outliers = append(outliers, o.(dayObservation).mood)
		}
		return nil, outliers, nil
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering daily moods: %w", err)
	}

	var regimes []Regime
	for _, cluster := range result {
		if len(cluster.Observations) == 0 {
			continue
		}

		var r Regime
		var indexSum, energySum float64
		for _, o := range cluster.Observations {
			m := o.(dayObservation).mood
			r.Days = append(r.Days, m.Day)
			indexSum += m.Index
			energySum += *m.EnergyAvg
		}
		sort.Slice(r.Days, func(i, j int) bool { return r.Days[i].Before(r.Days[j]) })

		n := float64(len(r.Days))
		r.MeanIndex = indexSum / n
		r.MeanEnergy = energySum / n
		r.StartDay = r.Days[0]
		r.EndDay = r.Days[len(r.Days)-1]
		r.Name = regimeName(r.MeanIndex, r.MeanEnergy)
		regimes = append(regimes, r)
	}

	sort.Slice(regimes, func(i, j int) bool { return regimes[i].StartDay.Before(regimes[j].StartDay) })
	return regimes, outliers, nil
}

// regimeName labels a centroid by quadrant of the index/energy plane.
func regimeName(index, energy float64) string {
	switch {
	case index >= 0.1 && energy >= 0.5:
		return "bright and energetic"
	case index >= 0.1:
		return "content and calm"
	case index <= -0.1 && energy >= 0.5:
		return "tense and driven"
	case index <= -0.1:
		return "low and subdued"
	default:
		return "steady"
	}
}
