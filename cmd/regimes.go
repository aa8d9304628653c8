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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moodsync/mood-tools/internal/insight"
)

// regimesCmd represents the regimes command
var regimesCmd = &cobra.Command{
	Use:   "regimes",
	Short: "Clusters daily moods into recurring emotional regimes",
	Long: `Groups the accumulated daily moods into clusters of similar emotional
texture (mood index plus audio averages) and prints each regime with its
date span. Days missing audio averages are listed as outliers.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRegimes(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(regimesCmd)

	var numClusters int
	regimesCmd.Flags().IntVar(&numClusters, "clusters", insight.DefaultConfig().NumClusters,
		"Number of regimes to detect")
	viper.BindPFlag("clusters", regimesCmd.Flags().Lookup("clusters"))
}

func runRegimes() error {
	user := strings.ToLower(viper.GetString("user"))

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	moods, err := db.MoodHistory(user, 0)
	if err != nil {
		return fmt.Errorf("reading mood history: %w", err)
	}
	if len(moods) == 0 {
		fmt.Println("No mood data yet")
		return nil
	}

	regimes, outliers, err := insight.DetectRegimes(moods, insight.Config{
		NumClusters: viper.GetInt("clusters"),
	})
	if err != nil {
		return err
	}
	if len(regimes) == 0 {
		fmt.Printf("Not enough days with audio averages to cluster (%d outliers)\n", len(outliers))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Regime", "Days", "Mean index", "Mean energy", "Span"})
	for _, r := range regimes {
		row := []string{
			r.Name,
			fmt.Sprintf("%d", len(r.Days)),
			fmt.Sprintf("%+.3f", r.MeanIndex),
			fmt.Sprintf("%.2f", r.MeanEnergy),
			fmt.Sprintf("%s to %s", r.StartDay.Format("2006-01-02"), r.EndDay.Format("2006-01-02")),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	if len(outliers) > 0 {
		fmt.Printf("%d days lacked audio averages and were left unclustered\n", len(outliers))
	}
	return nil
}
