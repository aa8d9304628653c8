// Package provider adapts the external music and lyrics collaborators to
// the contracts the pipeline consumes. The core depends on these
// interfaces, not on any concrete protocol.
package provider

import (
	"context"
	"time"

	"github.com/moodsync/mood-tools/internal/estimator"
)

// Listen is one play event from a music provider, with whatever track
// metadata and audio features the provider exposes.
type Listen struct {
	TrackID    string
	Name       string
	Artist     string
	PlayedAt   time.Time
	MsPlayed   int
	DurationMs int
	// Weight is the listening-context weight (replay count, duration
	// listened). Opaque positive real; the aggregator normalizes it.
	Weight float64
	Audio  *estimator.AudioFeatures
}

// History fetches a user's listening history.
type History interface {
	// RecentListens returns play events after since, oldest first.
	RecentListens(ctx context.Context, user string, since time.Time) ([]Listen, error)
}

// LyricsResult is a successful lyrics lookup.
type LyricsResult struct {
	Text         string
	Language     string
	Instrumental bool
	Source       string
}

// Lyrics fetches lyric text for a track. Get returns (nil, nil) when the
// provider has no lyrics for the track.
type Lyrics interface {
	Get(ctx context.Context, trackID, name, artist string) (*LyricsResult, error)
}
