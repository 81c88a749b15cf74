package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/store"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted experiment record",
	Long:  `Print the persisted experiment record as JSON, creating a default one if none exists yet.`,
	RunE:  runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		rec, err := s.Record(context.Background())
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rec)
	})
}
