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

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Deletes all data for a user",
	Long: `Removes the user's listens, scores, daily moods, forecasts and
check-ins in one transaction. Requires --yes; there is no undo.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPurge(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	var yes bool
	purgeCmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	viper.BindPFlag("purge_yes", purgeCmd.Flags().Lookup("yes"))
}

func runPurge() error {
	user := strings.ToLower(viper.GetString("user"))
	if !viper.GetBool("purge_yes") {
		return fmt.Errorf("refusing to purge %q without --yes", user)
	}

	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.PurgeUser(user); err != nil {
		return fmt.Errorf("purging user: %w", err)
	}

	fmt.Printf("Purged all data for %q\n", user)
	return nil
}
