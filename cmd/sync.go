/*
Copyright 2024 MoodSync Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moodsync/mood-tools/internal/provider"
	"github.com/moodsync/mood-tools/internal/store"
)

type SyncConfig struct {
	DbPath string
	User   string
	Source string
	Force  bool
}

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetches listening history and lyrics from the providers",
	Long:  `Stores listens, audio features and lyrics in the local SQLite database.`,
	Run: func(cmd *cobra.Command, args []string) {
		config := SyncConfig{
			DbPath: viper.GetString("database"),
			User:   viper.GetString("user"),
			Source: viper.GetString("source"),
			Force:  viper.GetBool("force"),
		}

		if err := syncDatabase(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	var source string
	syncCmd.Flags().StringVar(&source, "source", "spotify", "History source: spotify or lastfm")
	viper.BindPFlag("source", syncCmd.Flags().Lookup("source"))

	var force bool
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "Sync regardless of the last sync time (idempotent)")
	viper.BindPFlag("force", syncCmd.Flags().Lookup("force"))
}

func historyProvider(ctx context.Context, source string) (provider.History, error) {
	switch strings.ToLower(source) {
	case "spotify":
		token := viper.GetString("spotify_token")
		if token == "" {
			return nil, fmt.Errorf("spotify_token must be set for the spotify source")
		}
		return provider.NewSpotify(ctx, token), nil
	case "lastfm":
		apiKey := viper.GetString("lastfm_api_key")
		secret := viper.GetString("lastfm_secret")
		if apiKey == "" || secret == "" {
			return nil, fmt.Errorf("lastfm_api_key and lastfm_secret must be set for the lastfm source")
		}
		return provider.NewLastFM(apiKey, secret), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func syncDatabase(ctx context.Context, config SyncConfig) error {
	user := strings.ToLower(config.User)
	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.CreateUser(user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	lastSync, err := db.GetLastSync(user)
	if err != nil {
		return err
	}
	now := time.Now()
	if !lastSync.IsZero() && now.Sub(lastSync) < time.Hour && !config.Force {
		fmt.Printf("User data was already synced in the past hour\n")
		return nil
	}
	fmt.Printf("Last sync: %s\n", lastSync.Format("2006-01-02 15:04"))

	history, err := historyProvider(ctx, config.Source)
	if err != nil {
		return err
	}

	fmt.Printf("Fetching listens for %q from %s\n", user, config.Source)
	listens, err := history.RecentListens(ctx, user, lastSync)
	if err != nil {
		return fmt.Errorf("fetching listens: %w", err)
	}
	if len(listens) == 0 {
		fmt.Println("No new listens")
		return db.SetLastSync(user, now)
	}

	imports := make([]store.ListenImport, 0, len(listens))
	for _, l := range listens {
		imports = append(imports, store.ListenImport{
			TrackID:    l.TrackID,
			Name:       l.Name,
			Artist:     l.Artist,
			PlayedAt:   l.PlayedAt,
			MsPlayed:   l.MsPlayed,
			Weight:     l.Weight,
			DurationMs: l.DurationMs,
			Audio:      l.Audio,
		})
	}
	if err := db.AddListens(user, imports); err != nil {
		return fmt.Errorf("inserting listens: %w", err)
	}
	fmt.Printf("Stored %d listens\n", len(imports))

	if err := fetchLyrics(ctx, db, listens); err != nil {
		return err
	}

	return db.SetLastSync(user, now)
}

// fetchLyrics fills the lyrics cache for newly seen tracks. A track the
// lyrics provider does not know is recorded as instrumental-unknown so it
// is not refetched every sync.
func fetchLyrics(ctx context.Context, db *store.Store, listens []provider.Listen) error {
	lyricsURL := viper.GetString("lyrics_url")
	if lyricsURL == "" {
		fmt.Println("No lyrics_url configured, skipping lyrics")
		return nil
	}
	lyrics := provider.NewHTTPLyrics(lyricsURL, 10*time.Second)

	seen := make(map[string]struct{})
	fetched := 0
	for _, l := range listens {
		if _, ok := seen[l.TrackID]; ok {
			continue
		}
		seen[l.TrackID] = struct{}{}

		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := lyrics.Get(ctx, l.TrackID, l.Name, l.Artist)
		if err != nil {
			fmt.Printf("Fetching lyrics for %s - %s: %v\n", l.Artist, l.Name, err)
			continue
		}
		if result == nil {
			if err := db.SaveLyrics(l.TrackID, "none", "", "", false); err != nil {
				return err
			}
			continue
		}
		if err := db.SaveLyrics(l.TrackID, result.Source, result.Language, result.Text, result.Instrumental); err != nil {
			return err
		}
		fetched++
	}
	fmt.Printf("Fetched lyrics for %d of %d tracks\n", fetched, len(seen))
	return nil
}
