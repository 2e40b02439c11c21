package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"sjsage522/lotwatcher/config"
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "List the lots already delivered for a source",
	Long: `Print the delivered history kept in Redis for one source.

Examples:
  lotwatcher seen --source copart
  lotwatcher seen --source iaai --json
  lotwatcher seen --source copart --search 1234567`,
	RunE: runSeen,
}

func init() {
	rootCmd.AddCommand(seenCmd)
	seenCmd.Flags().Bool("json", false, "print the history as JSON")
	seenCmd.Flags().String("search", "", "only print identities containing this text")
	seenCmd.Flags().Bool("count", false, "only print the number of identities")
}

type seenReport struct {
	Source     string   `json:"source"`
	Key        string   `json:"key"`
	Count      int      `json:"count"`
	Identities []string `json:"identities"`
}

func runSeen(cmd *cobra.Command, args []string) error {
	source, err := sourceFlag(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	filter, _ := cmd.Flags().GetString("search")
	countOnly, _ := cmd.Flags().GetBool("count")

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	services, err := initializeServices(cmd.Context(), cfg, source, true)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	report := seenReport{Source: source, Key: config.StoreKey(source)}
	report.Identities = filterIdentities(services.Store.AllKnown(cmd.Context()), filter)
	report.Count = len(report.Identities)

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case countOnly:
		_, err := fmt.Fprintln(out, report.Count)
		return err
	default:
		for _, id := range report.Identities {
			fmt.Fprintln(out, id)
		}
		_, err := fmt.Fprintf(out, "%d delivered lots in %s\n", report.Count, report.Key)
		return err
	}
}

// filterIdentities returns the sorted identities containing filter, case-insensitively
func filterIdentities(known map[string]struct{}, filter string) []string {
	filter = strings.ToLower(strings.TrimSpace(filter))
	ids := make([]string, 0, len(known))
	for id := range known {
		if filter != "" && !strings.Contains(strings.ToLower(id), filter) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
