// Package pipeline sequences scoring, aggregation and forecasting per user,
// and owns the write path for every derived record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/moodsync/mood-tools/internal/aggregate"
	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
	"github.com/moodsync/mood-tools/internal/forecast"
	"github.com/moodsync/mood-tools/internal/store"
)

// Coordinator runs the scoring-aggregation-forecasting pipeline. It is the
// only writer of TrackScore, DailyMood and Forecast records.
type Coordinator struct {
	store       *store.Store
	estimators  []estimator.Estimator
	version     ensemble.Version
	forecastCfg forecast.Config
	locks       *dayLocks
	callTimeout time.Duration
}

// New builds a coordinator. callTimeout bounds each individual estimator
// call; a timeout degrades that estimator to abstention, never the track.
func New(st *store.Store, estimators []estimator.Estimator, v ensemble.Version, callTimeout time.Duration) *Coordinator {
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &Coordinator{
		store:      st,
		estimators: estimators,
		version:    v,
		forecastCfg: forecast.Config{
			MinHistory:     v.MinHistory,
			BaselineWindow: v.BaselineWindow,
			AnomalySigma:   v.AnomalySigma,
			Model:          forecast.NewAR(),
		},
		locks:       newDayLocks(),
		callTimeout: callTimeout,
	}
}

// Version returns the pinned ensemble version.
func (c *Coordinator) Version() ensemble.Version {
	return c.version
}

// ScoreTrack scores one track for one user under the pinned ensemble
// version and persists the result. Re-running with the same version
// overwrites with an identical record. Estimator failures, timeouts and
// malformed payloads all degrade to abstention; only a track with no
// estimator output and no audio features fails, and nothing is persisted
// for it.
func (c *Coordinator) ScoreTrack(ctx context.Context, userID, trackID string) (ensemble.TrackScore, error) {
	input, err := c.store.TrackInput(trackID)
	if err != nil {
		return ensemble.TrackScore{}, err
	}

	outputs := c.collectOutputs(ctx, input)

	score, err := ensemble.Combine(trackID, userID, outputs, input.Audio, c.version)
	if err != nil {
		return ensemble.TrackScore{}, err
	}

	if err := c.store.PutTrackScore(score); err != nil {
		return ensemble.TrackScore{}, err
	}
	return score, nil
}

// collectOutputs fans the input out to every estimator concurrently, each
// call bounded by the per-call timeout. An estimator that errors, times
// out, or returns a malformed payload contributes nothing.
func (c *Coordinator) collectOutputs(ctx context.Context, input estimator.Input) []estimator.Output {
	results := make([]*estimator.Output, len(c.estimators))

	var g errgroup.Group
	for i, est := range c.estimators {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			raw, err := est.Score(callCtx, input)
			if err != nil {
				return nil // abstention
			}
			out, err := estimator.Normalize(est.ID(), est.Version(), raw)
			if err != nil {
				var nerr *estimator.NormalizationError
				if errors.As(err, &nerr) {
					fmt.Printf("Estimator %s abstained: %v\n", est.ID(), nerr)
				}
				return nil // abstention
			}
			results[i] = &out
			return nil
		})
	}
	g.Wait()

	var outputs []estimator.Output
	for _, r := range results {
		if r != nil {
			outputs = append(outputs, *r)
		}
	}
	return outputs
}

// ScoreUser scores every unscored (track, user) pair for the pinned
// version, in parallel across the worker pool. Cancellation is cooperative
// at per-track boundaries; already-persisted scores stay valid.
func (c *Coordinator) ScoreUser(ctx context.Context, userID string, workers, queueSize int) (int, error) {
	tracks, err := c.store.UnscoredTracks(userID, c.version.ID)
	if err != nil {
		return 0, err
	}
	if len(tracks) == 0 {
		return 0, nil
	}

	runID := uuid.New()
	scored := 0

	pool := NewPool(queueSize, func(jobCtx context.Context, job Job) {
		_, err := c.ScoreTrack(jobCtx, job.UserID, job.TrackID)
		if err != nil {
			var sigErr *ensemble.InsufficientSignalError
			if errors.As(err, &sigErr) {
				fmt.Printf("[%s] Track %s left unscored: no usable signal\n", job.RunID, job.TrackID)
				return
			}
			fmt.Printf("[%s] Scoring track %s: %v\n", job.RunID, job.TrackID, err)
			return
		}
	})
	pool.Start(ctx, workers)

	for _, trackID := range tracks {
		if err := pool.Submit(ctx, Job{RunID: runID, UserID: userID, TrackID: trackID}); err != nil {
			break
		}
		scored++
	}
	pool.Stop()

	return scored, ctx.Err()
}

// AggregateDay recomputes the daily mood for (user, day) from that day's
// track scores. It holds the per-(user, day) lock for the whole
// read-then-write, so concurrent requests for the same day serialize. A day
// with zero scored listens yields ok=false and no stored record.
func (c *Coordinator) AggregateDay(ctx context.Context, userID string, day time.Time) (aggregate.DailyMood, bool, error) {
	var mood aggregate.DailyMood
	var ok bool

	err := c.locks.withLock(userID, store.DayKey(day), func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := c.store.DayEntries(userID, day, c.version.ID)
		if err != nil {
			return err
		}

		mood, ok = aggregate.Aggregate(userID, day, entries, c.version)
		if !ok {
			return c.store.DeleteDailyMood(userID, day)
		}
		return c.store.PutDailyMood(mood)
	})
	if err != nil {
		return aggregate.DailyMood{}, false, err
	}
	return mood, ok, nil
}

// ForecastNext issues a next-period forecast from the user's daily mood
// history. Below the minimum history it fails with
// InsufficientHistoryError and persists nothing.
func (c *Coordinator) ForecastNext(ctx context.Context, userID string) (forecast.Result, error) {
	if err := ctx.Err(); err != nil {
		return forecast.Result{}, err
	}

	history, err := c.store.MoodHistory(userID, 0)
	if err != nil {
		return forecast.Result{}, err
	}

	result, err := forecast.Next(userID, history, c.forecastCfg)
	if err != nil {
		return forecast.Result{}, err
	}
	result.Version = c.version.ID

	if err := c.store.PutForecast(result); err != nil {
		return forecast.Result{}, err
	}
	return result, nil
}

// State reports the user's forecasting state from accumulated history.
func (c *Coordinator) State(userID string) (forecast.State, error) {
	history, err := c.store.MoodHistory(userID, 0)
	if err != nil {
		return forecast.Cold, err
	}
	return forecast.StateFor(len(history), c.forecastCfg.MinHistory), nil
}
