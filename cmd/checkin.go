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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// checkinCmd represents the checkin command
var checkinCmd = &cobra.Command{
	Use:   "checkin <mood 1-5> [note]",
	Short: "Records a self-reported mood for today",
	Long: `Stores a 1-5 mood check-in for the current day, with an optional note.
Check-ins appear next to the computed index in reports, as a sanity check
on the listening-derived mood.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheckin(args); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkinCmd)

	var day string
	checkinCmd.Flags().StringVar(&day, "day", "", "Day to check in for (YYYY-MM-DD), default today")
	viper.BindPFlag("checkin_day", checkinCmd.Flags().Lookup("day"))
}

func runCheckin(args []string) error {
	user := strings.ToLower(viper.GetString("user"))

	mood, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("mood must be a number from 1 to 5: %w", err)
	}
	note := ""
	if len(args) > 1 {
		note = args[1]
	}

	day := time.Now().UTC()
	if raw := viper.GetString("checkin_day"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("parsing day %q: %w", raw, err)
		}
	}

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.CreateUser(user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	if err := db.AddCheckin(user, day, mood, note); err != nil {
		return fmt.Errorf("saving check-in: %w", err)
	}

	fmt.Printf("Recorded check-in %d/5 for %s\n", mood, day.Format("2006-01-02"))
	return nil
}
