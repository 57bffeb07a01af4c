package cmd

import "github.com/spf13/cobra"

// rateLimitCmd groups the maintenance commands for the source throttle table.
var rateLimitCmd = &cobra.Command{
	Use:     "rate-limit",
	Aliases: []string{"ratelimit"},
	Short:   "Inspect or clear persisted source throttle state",
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd, rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
