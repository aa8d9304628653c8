// Package aggregate folds a user's per-track scores for one day into a
// single daily mood record.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
)

// Entry is one scored listen contributing to a day: the track's score plus
// the listening-context weight supplied by the provider (replay count,
// play duration). The weight is an opaque positive real; it is normalized
// here.
type Entry struct {
	Score   ensemble.TrackScore
	Weight  float64
	Minutes float64
	Audio   *estimator.AudioFeatures
}

// Driver is a track whose polarity pulled hardest on the day's mood.
type Driver struct {
	TrackID   string
	Polarity  float64
	Deviation float64 // absolute distance from the day's mood index
}

// DailyMood is the aggregate emotional tone of one (user, day). It is always
// recomputed whole from that day's TrackScores, never patched. A day with
// zero scored listens produces no record at all: absence is the "no data"
// signal, never an index of 0.
type DailyMood struct {
	UserID string
	Day    time.Time

	Index       float64 // [-1, 1]
	IndexStdDev float64
	Dominant    estimator.Category
	TrackCount  int // includes unscored tracks, for transparency
	Drivers     []Driver

	ListeningMinutes float64
	EnergyAvg        *float64
	ValenceAvg       *float64

	Version string
}

// Aggregate collapses a day's entries into a DailyMood. Tracks flagged
// unscored are excluded from the weighted mean but still count toward
// TrackCount. Returns ok=false when no entry carries a polarity; the caller
// must not persist a record in that case.
func Aggregate(userID string, day time.Time, entries []Entry, v ensemble.Version) (DailyMood, bool) {
	var scored []Entry
	for _, e := range entries {
		if e.Weight <= 0 {
			// Defensive against provider nonsense; a zero-weight listen
			// cannot move the mean anyway.
			continue
		}
		if !e.Score.Unscored && e.Score.Polarity != nil {
			scored = append(scored, e)
		}
	}
	if len(scored) == 0 {
		return DailyMood{}, false
	}

	var weightSum, indexSum float64
	for _, e := range scored {
		weightSum += e.Weight
		indexSum += *e.Score.Polarity * e.Weight
	}
	index := indexSum / weightSum

	var varSum float64
	for _, e := range scored {
		d := *e.Score.Polarity - index
		varSum += e.Weight * d * d
	}
	stddev := math.Sqrt(varSum / weightSum)

	mood := DailyMood{
		UserID:      userID,
		Day:         day,
		Index:       clamp(index, -1, 1),
		IndexStdDev: stddev,
		Dominant:    dominantEmotion(entries),
		TrackCount:  countWeighted(entries),
		Drivers:     topDrivers(scored, index, v.TopDrivers),
		Version:     v.ID,
	}

	mood.ListeningMinutes, mood.EnergyAvg, mood.ValenceAvg = audioSummary(entries)

	return mood, true
}

func countWeighted(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Weight > 0 {
			n++
		}
	}
	return n
}

// dominantEmotion picks the category with the highest weighted-mean
// intensity across the day. Ties break by the fixed priority order, which
// surfaces positive, actionable categories first.
func dominantEmotion(entries []Entry) estimator.Category {
	sums := make(map[estimator.Category]float64)
	wsums := make(map[estimator.Category]float64)
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		for cat, intensity := range e.Score.Emotions {
			sums[cat] += intensity * e.Weight
			wsums[cat] += e.Weight
		}
	}

	var best estimator.Category
	bestMean := -1.0
	for _, cat := range estimator.Priority {
		w, ok := wsums[cat]
		if !ok {
			continue
		}
		mean := sums[cat] / w
		if mean > bestMean {
			best = cat
			bestMean = mean
		}
	}
	return best
}

// topDrivers returns the scored tracks with the largest absolute deviation
// from the day's mood index, descending, capped at n.
func topDrivers(scored []Entry, index float64, n int) []Driver {
	drivers := make([]Driver, 0, len(scored))
	for _, e := range scored {
		p := *e.Score.Polarity
		drivers = append(drivers, Driver{
			TrackID:   e.Score.TrackID,
			Polarity:  p,
			Deviation: math.Abs(p - index),
		})
	}
	sort.SliceStable(drivers, func(i, j int) bool {
		if drivers[i].Deviation != drivers[j].Deviation {
			return drivers[i].Deviation > drivers[j].Deviation
		}
		return drivers[i].TrackID < drivers[j].TrackID
	})
	if n > 0 && len(drivers) > n {
		drivers = drivers[:n]
	}
	return drivers
}

func audioSummary(entries []Entry) (minutes float64, energy, valence *float64) {
	var energySum, valenceSum float64
	var audioCount int
	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		minutes += e.Minutes
		if e.Audio != nil {
			energySum += e.Audio.Energy
			valenceSum += e.Audio.Valence
			audioCount++
		}
	}
	if audioCount > 0 {
		ea := energySum / float64(audioCount)
		va := valenceSum / float64(audioCount)
		energy = &ea
		valence = &va
	}
	return minutes, energy, valence
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
