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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Scores unscored tracks with the sentiment ensemble",
	Long: `Runs every synced track that has no score under the current ensemble
version through the estimators and persists the combined scores. Re-running
is idempotent: a track is analyzed once per ensemble version.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScore(cmd); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	var workers int
	scoreCmd.Flags().IntVar(&workers, "workers", 4, "Number of concurrent scoring workers")
	viper.BindPFlag("workers", scoreCmd.Flags().Lookup("workers"))

	var queueSize int
	scoreCmd.Flags().IntVar(&queueSize, "queue_size", 64, "Bounded scoring queue capacity")
	viper.BindPFlag("queue_size", scoreCmd.Flags().Lookup("queue_size"))
}

func runScore(cmd *cobra.Command) error {
	user := strings.ToLower(viper.GetString("user"))

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	coordinator := newCoordinator(db)
	fmt.Printf("Scoring tracks for %q with ensemble %s\n", user, coordinator.Version().ID)

	scored, err := coordinator.ScoreUser(cmd.Context(), user,
		viper.GetInt("workers"), viper.GetInt("queue_size"))
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	fmt.Printf("Submitted %d tracks\n", scored)
	return nil
}
