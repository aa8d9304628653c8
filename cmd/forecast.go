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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moodsync/mood-tools/internal/forecast"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecasts the next period's mood index",
	Long: `Issues a next-period point forecast with confidence bounds from the
accumulated daily moods, and flags the current day as anomalous when it
deviates from the personal baseline. Requires a minimum mood history.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runForecast(cmd); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command) error {
	user := strings.ToLower(viper.GetString("user"))

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	coordinator := newCoordinator(db)
	result, err := coordinator.ForecastNext(cmd.Context(), user)
	if err != nil {
		var histErr *forecast.InsufficientHistoryError
		if errors.As(err, &histErr) {
			fmt.Printf("Not enough history yet: %d of %d daily moods. Keep listening.\n",
				histErr.Have, histErr.Need)
			return nil
		}
		return fmt.Errorf("forecasting: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Issue day", "Forecast", "Interval", "Anomaly", "Baseline"})
	anomaly := "no"
	if result.Anomaly {
		anomaly = fmt.Sprintf("YES (%+.2f sd)", result.AnomalyMagnitude)
	}
	row := []string{
		result.IssueDay.Format("2006-01-02"),
		fmt.Sprintf("%+.3f", result.Point),
		fmt.Sprintf("[%+.3f, %+.3f]", result.Low, result.High),
		anomaly,
		fmt.Sprintf("%d days, mean %+.3f", result.BaselineDays, result.BaselineMean),
	}
	if err := table.Append(row); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	fmt.Printf("Model: %s, ensemble %s\n", result.ModelName, result.Version)
	return nil
}
