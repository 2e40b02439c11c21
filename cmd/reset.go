package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sjsage522/lotwatcher/config"
	"sjsage522/lotwatcher/logger"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the delivered history of a source",
	Long: `Delete the delivered history kept in Redis for one source. Every lot
will be delivered again on the next run and a new retention window starts
with the first delivery.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	source, err := sourceFlag(cmd)
	if err != nil {
		return err
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	services, err := initializeServices(cmd.Context(), cfg, source, true)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	before := services.Store.Count(cmd.Context())
	if err := services.Store.Reset(cmd.Context()); err != nil {
		return err
	}
	logger.ForStore().Info().Str("source", source).Int("removed", before).Msg("Delivered history cleared")
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d identities from %s\n", before, config.StoreKey(source))
	return err
}
