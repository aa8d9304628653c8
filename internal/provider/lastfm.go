package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
)

// LastFM fetches scrobbles from last.fm. The scrobble feed carries no audio
// features, so tracks synced from here are scored from lyrics alone and the
// audio estimator abstains.
type LastFM struct {
	client  *lastfm.Api
	limiter *rate.Limiter
}

// NewLastFM builds a last.fm provider.
func NewLastFM(apiKey, secret string) *LastFM {
	client := lastfm.New(apiKey, secret)
	client.SetUserAgent("mood-tools/1.0")
	return &LastFM{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// RecentListens pages through the user's recent scrobbles after since,
// oldest first. Each scrobble gets weight 1.
func (l *LastFM) RecentListens(ctx context.Context, user string, since time.Time) ([]Listen, error) {
	var listens []Listen

	page := 1 // first page is 1
	pages := 0
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var recentTracks lastfm.UserGetRecentTracks
		err := retry.Do(
			func() error {
				var err error
				recentTracks, err = l.client.User.GetRecentTracks(lastfm.P{
					"limit": 200,
					"page":  page,
					"user":  user,
				})
				return err
			},
			retry.Context(ctx),
			retry.RetryIf(func(err error) bool {
				if lerr, ok := err.(*lastfm.LastfmError); ok {
					if lerr.Code/100 == 5 {
						fmt.Printf("last.fm errored, retrying: %v\n", lerr)
						return true
					}
					return false
				}
				return false
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("fetching recent tracks (page %d): %w", page, err)
		}
		if pages == 0 {
			pages = recentTracks.TotalPages
		}
		if len(recentTracks.Tracks) == 0 {
			break
		}

		reachedSince := false
		for _, t := range recentTracks.Tracks {
			uts, err := strconv.ParseInt(t.Date.Uts, 10, 64)
			if err != nil {
				// Now-playing entries have no date; skip them.
				continue
			}
			playedAt := time.Unix(uts, 0)
			if !since.IsZero() && !playedAt.After(since) {
				reachedSince = true
				continue
			}
			listens = append(listens, Listen{
				TrackID:  lastfmTrackID(t.Artist.Name, t.Name),
				Name:     t.Name,
				Artist:   t.Artist.Name,
				PlayedAt: playedAt,
				Weight:   1,
			})
		}

		page++
		if reachedSince || page > pages {
			break
		}
	}

	// last.fm returns newest first.
	for i, j := 0, len(listens)-1; i < j; i, j = i+1, j-1 {
		listens[i], listens[j] = listens[j], listens[i]
	}
	return listens, nil
}

// lastfmTrackID builds a stable track key, since scrobbles carry no
// provider track id.
func lastfmTrackID(artist, name string) string {
	return "lastfm:" + artist + "|" + name
}
