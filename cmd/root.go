// Package cmd implements the lotwatcher command line.
package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/lotwatcher/config"
	"sjsage522/lotwatcher/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lotwatcher",
	Short: "Watches Copart and IAAI searches and posts new lots to Telegram",
	Long: `lotwatcher polls auction search pages on cron schedules, extracts the
listed lots, skips the ones already delivered and posts the rest to a
Telegram chat.

Examples:
  # Run the Copart schedule from config/copart.config.json
  lotwatcher run --source copart

  # List what was already delivered for IAAI
  lotwatcher seen --source iaai --json

  # Clear the delivered history
  lotwatcher reset --source copart`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logger.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("source", "s", config.SourceCopart, "auction source: copart, iaai")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func sourceFlag(cmd *cobra.Command) (string, error) {
	source, _ := cmd.Flags().GetString("source")
	return validateSource(source)
}

func validateSource(source string) (string, error) {
	switch source {
	case config.SourceCopart, config.SourceIAAI:
		return source, nil
	default:
		return "", fmt.Errorf("unknown source %q, expected copart or iaai", source)
	}
}
