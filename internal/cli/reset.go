package cli

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/store"
)

var (
	resetEvents bool
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persisted experiment record",
	Long: `Clear the persisted experiment record, the equivalent of clearing browser
storage: the next read creates a fresh default record with a new random
variant. With --events the analytics log and settings are purged too.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetEvents, "events", false, "also purge the analytics log and settings")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		label := "Clear the experiment record"
		if resetEvents {
			label = "Clear the experiment record AND the analytics log"
		}
		prompt := promptui.Prompt{
			Label:     label,
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	return withStore(func(s *store.SQLiteStore) error {
		if err := s.Reset(context.Background(), resetEvents); err != nil {
			return err
		}
		fmt.Println("State cleared.")
		return nil
	})
}
