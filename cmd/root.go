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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mood-tools",
	Short: "Turns music listening history into a daily mood signal",
	Long: `Scores listened tracks with an ensemble of sentiment estimators,
folds the scores into daily mood indices, and forecasts the next period.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.mood-tools.yaml)")

	var user string
	rootCmd.PersistentFlags().StringVarP(
		&user, "user", "u", "", "user to act on")
	rootCmd.MarkPersistentFlagRequired("user")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	var databasePath string
	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./mood.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	var spotifyToken string
	rootCmd.PersistentFlags().StringVar(
		&spotifyToken, "spotify_token", "", "Spotify user access token")
	viper.BindPFlag("spotify_token", rootCmd.PersistentFlags().Lookup("spotify_token"))

	var lastFmApiKey string
	rootCmd.PersistentFlags().StringVar(&lastFmApiKey, "lastfm_api_key", "", "last.fm API key")
	viper.BindPFlag("lastfm_api_key", rootCmd.PersistentFlags().Lookup("lastfm_api_key"))

	var lastFmSecret string
	rootCmd.PersistentFlags().StringVar(&lastFmSecret, "lastfm_secret", "", "last.fm secret")
	viper.BindPFlag("lastfm_secret", rootCmd.PersistentFlags().Lookup("lastfm_secret"))

	var lyricsURL string
	rootCmd.PersistentFlags().StringVar(
		&lyricsURL, "lyrics_url", "https://lrclib.net/api/get", "Lyrics API endpoint")
	viper.BindPFlag("lyrics_url", rootCmd.PersistentFlags().Lookup("lyrics_url"))

	var sentimentURL string
	rootCmd.PersistentFlags().StringVar(
		&sentimentURL, "sentiment_url", "", "Rule-based sentiment inference endpoint")
	viper.BindPFlag("sentiment_url", rootCmd.PersistentFlags().Lookup("sentiment_url"))

	var classifierURL string
	rootCmd.PersistentFlags().StringVar(
		&classifierURL, "classifier_url", "", "Transformer sentiment inference endpoint")
	viper.BindPFlag("classifier_url", rootCmd.PersistentFlags().Lookup("classifier_url"))

	var emotionURL string
	rootCmd.PersistentFlags().StringVar(
		&emotionURL, "emotion_url", "", "Emotion classifier inference endpoint")
	viper.BindPFlag("emotion_url", rootCmd.PersistentFlags().Lookup("emotion_url"))

	var sendgridAPIKey string
	rootCmd.PersistentFlags().StringVar(&sendgridAPIKey, "sendgrid_api_key", "", "SendGrid API key")
	viper.BindPFlag("sendgrid_api_key", rootCmd.PersistentFlags().Lookup("sendgrid_api_key"))

	var from string
	rootCmd.PersistentFlags().StringVar(&from, "from", "", "From email address for reports")
	viper.BindPFlag("from", rootCmd.PersistentFlags().Lookup("from"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".mood-tools" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".mood-tools")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}
