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
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moodsync/mood-tools/internal/store"
)

type ReportConfig struct {
	DbPath string
	User   string
	To     string
	From   string
	DryRun bool
	Start  time.Time
	End    time.Time
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [date] [date]",
	Short: "Prints or emails a daily mood report",
	Long: `Renders the daily mood records for a date range as a table, with the
self-reported check-in next to the computed index where one exists. With
--to the report is emailed via SendGrid instead of printed. Defaults to the
previous month when no dates are given.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var start, end time.Time
		var err error
		if len(args) > 0 {
			start, end, err = parseDateRangeFromArgs(args)
			if err != nil {
				fmt.Printf("Error parsing dates: %v\n", err)
				os.Exit(1)
			}
		} else {
			// Default to last month
			now := time.Now()
			start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
			end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		}

		config := ReportConfig{
			DbPath: viper.GetString("database"),
			User:   strings.ToLower(viper.GetString("user")),
			To:     viper.GetString("to"),
			From:   viper.GetString("from"),
			DryRun: viper.GetBool("dryRun"),
			Start:  start,
			End:    end,
		}
		if err := runReport(config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	var to string
	reportCmd.Flags().StringVar(&to, "to", "", "Email the report to this address")
	viper.BindPFlag("to", reportCmd.Flags().Lookup("to"))

	var dryRun bool
	reportCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", reportCmd.Flags().Lookup("dry_run"))
}

func runReport(config ReportConfig) error {
	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	moods, err := db.DailyMoodsInRange(config.User, config.Start, config.End)
	if err != nil {
		return fmt.Errorf("reading daily moods: %w", err)
	}
	if len(moods) == 0 {
		fmt.Printf("No mood data for %s to %s\n",
			config.Start.Format("2006-01-02"), config.End.Format("2006-01-02"))
		return nil
	}

	out := new(bytes.Buffer)
	table := tablewriter.NewWriter(out)
	table.Header([]string{"Day", "Index", "Dominant", "Tracks", "Minutes", "Check-in", "Top driver"})
	for _, m := range moods {
		checkin := ""
		if mood, _, ok, err := db.GetCheckin(config.User, m.Day); err == nil && ok {
			checkin = fmt.Sprintf("%d/5", mood)
		}
		driver := ""
		if len(m.Drivers) > 0 {
			driver = fmt.Sprintf("%s (%+.2f)", m.Drivers[0].TrackID, m.Drivers[0].Polarity)
		}
		row := []string{
			m.Day.Format("2006-01-02"),
			fmt.Sprintf("%+.3f", m.Index),
			string(m.Dominant),
			fmt.Sprintf("%d", m.TrackCount),
			fmt.Sprintf("%.0f", m.ListeningMinutes),
			checkin,
			driver,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	subject := fmt.Sprintf("Mood report for %s: %s to %s",
		config.User, config.Start.Format("2006-01-02"), config.End.Format("2006-01-02"))

	if config.To == "" || config.DryRun {
		if config.DryRun && config.To != "" {
			fmt.Printf("Would have sent email to %s:\nsubject: %s\n", config.To, subject)
		}
		fmt.Print(out.String())
		return nil
	}

	if config.From == "" {
		return fmt.Errorf("from must be set in order to send emails")
	}
	apiKey := viper.GetString("sendgrid_api_key")
	if apiKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("mood-tools", config.From)
	to := mail.NewEmail(config.To, config.To)
	body := "<pre>" + out.String() + "</pre>"
	message := mail.NewSingleEmail(from, subject, to, out.String(), body)
	client := sendgrid.NewSendClient(apiKey)
	if _, err := client.Send(message); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}

	fmt.Printf("Sent report to %s\n", config.To)
	return nil
}
