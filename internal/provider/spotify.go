package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/moodsync/mood-tools/internal/estimator"
)

// spotifyFeatureBatch is the Spotify API limit for one audio-features call.
const spotifyFeatureBatch = 100

// Spotify fetches recently-played history and audio features from the
// Spotify Web API.
type Spotify struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// NewSpotify builds a Spotify provider from a user access token.
func NewSpotify(ctx context.Context, accessToken string) *Spotify {
	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return newSpotify(httpClient)
}

func newSpotify(httpClient *http.Client) *Spotify {
	return &Spotify{
		api:     spotify.New(httpClient, spotify.WithRetry(true)),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// RecentListens fetches recently played tracks after since, enriched with
// audio features, oldest first. The user argument is unused: the access
// token already identifies the user.
func (s *Spotify) RecentListens(ctx context.Context, _ string, since time.Time) ([]Listen, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := spotify.RecentlyPlayedOptions{Limit: 50}
	if !since.IsZero() {
		opts.AfterEpochMs = since.UnixMilli()
	}

	items, err := s.api.PlayerRecentlyPlayedOpt(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	listens := make([]Listen, 0, len(items))
	seen := make(map[spotify.ID]struct{})
	var ids []spotify.ID
	for _, item := range items {
		artist := ""
		if len(item.Track.Artists) > 0 {
			artist = item.Track.Artists[0].Name
		}
		durationMs := int(item.Track.Duration)
		listens = append(listens, Listen{
			TrackID:    string(item.Track.ID),
			Name:       item.Track.Name,
			Artist:     artist,
			PlayedAt:   item.PlayedAt,
			MsPlayed:   durationMs,
			DurationMs: durationMs,
			Weight:     1,
		})
		if _, ok := seen[item.Track.ID]; !ok {
			seen[item.Track.ID] = struct{}{}
			ids = append(ids, item.Track.ID)
		}
	}

	features, err := s.audioFeatures(ctx, ids)
	if err != nil {
		// History without features is still usable: the audio estimator
		// will abstain for these tracks.
		fmt.Printf("Fetching audio features failed, continuing without: %v\n", err)
	} else {
		for i := range listens {
			listens[i].Audio = features[listens[i].TrackID]
		}
	}

	// Spotify returns newest first.
	for i, j := 0, len(listens)-1; i < j; i, j = i+1, j-1 {
		listens[i], listens[j] = listens[j], listens[i]
	}
	return listens, nil
}

func (s *Spotify) audioFeatures(ctx context.Context, ids []spotify.ID) (map[string]*estimator.AudioFeatures, error) {
	byID := make(map[string]*estimator.AudioFeatures, len(ids))
	for i := 0; i < len(ids); i += spotifyFeatureBatch {
		end := i + spotifyFeatureBatch
		if end > len(ids) {
			end = len(ids)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		features, err := s.api.GetAudioFeatures(ctx, ids[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features: %w", err)
		}

		for _, f := range features {
			if f == nil {
				continue
			}
			byID[f.ID.String()] = mapAudioFeatures(f)
		}
	}
	return byID, nil
}

func mapAudioFeatures(f *spotify.AudioFeatures) *estimator.AudioFeatures {
	return &estimator.AudioFeatures{
		Valence:  float64(f.Valence),
		Energy:   float64(f.Energy),
		Tempo:    float64(f.Tempo),
		Loudness: float64(f.Loudness),
		Mode:     int(f.Mode),
	}
}
