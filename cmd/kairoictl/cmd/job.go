package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Schedule or cancel jobs on the Database Engine",
}

var jobSetCmd = &cobra.Command{
	Use:   "set <job-id> <execution-time>",
	Short: "Schedule a job to trigger at the given time",
	Long: `Schedule a job to trigger at the given time.

execution-time uses the format "YYYY-MM-DD HH:MM:SS" (UTC). Setting an
already-Planned job replaces its execution time; setting an already-
Triggered job is rejected.

Example:
  kairoictl job set app.report.daily "2026-01-01 00:00:00"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewControlClient(viper.GetString("addr"))
		if err := client.Send("SET", args[0], args[1]); err != nil {
			return err
		}

		cmd.Println("OK")

		return nil
	},
}

var jobUnsetCmd = &cobra.Command{
	Use:   "unset <job-id>",
	Short: "Cancel a planned job",
	Long: `Cancel a planned job. Unsetting a job that does not exist is
rejected with not_found.

Example:
  kairoictl job unset app.report.daily`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewControlClient(viper.GetString("addr"))
		if err := client.Send("UNSET", args[0]); err != nil {
			return err
		}

		cmd.Println("OK")

		return nil
	},
}

func init() {
	jobCmd.AddCommand(jobSetCmd, jobUnsetCmd)
	rootCmd.AddCommand(jobCmd)
}
