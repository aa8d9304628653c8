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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [date] [date]",
	Short: "Recomputes daily mood records from track scores",
	Long: `Folds the day's track scores into one mood record per day. With no
arguments every day with listens is recomputed; one or two date arguments
(e.g. '2024-05' or '2024-05-01 2024-06-01') restrict the range. Each day is
recomputed whole from its scores.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAggregate(cmd, args); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	user := strings.ToLower(viper.GetString("user"))

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	days, err := db.ListenDays(user)
	if err != nil {
		return fmt.Errorf("listing listen days: %w", err)
	}
	if len(args) > 0 {
		start, end, err := parseDateRangeFromArgs(args)
		if err != nil {
			return err
		}
		var filtered []time.Time
		for _, day := range days {
			if !day.Before(start) && day.Before(end) {
				filtered = append(filtered, day)
			}
		}
		days = filtered
	}
	if len(days) == 0 {
		fmt.Println("No days to aggregate")
		return nil
	}

	coordinator := newCoordinator(db)
	created := 0
	for _, day := range days {
		mood, ok, err := coordinator.AggregateDay(cmd.Context(), user, day)
		if err != nil {
			return fmt.Errorf("aggregating %s: %w", day.Format("2006-01-02"), err)
		}
		if !ok {
			// No scored listens: absence of a record is the "no data"
			// signal.
			continue
		}
		created++
		fmt.Printf("%s  index=%+.3f  dominant=%-8s  tracks=%d\n",
			day.Format("2006-01-02"), mood.Index, mood.Dominant, mood.TrackCount)
	}

	fmt.Printf("Aggregated %d of %d days\n", created, len(days))
	return nil
}
