package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

func init() {
	variantCmd := &cobra.Command{
		Use:   "variant",
		Short: "Show the assigned variant",
		RunE:  runVariantShow,
	}

	variantCmd.AddCommand(&cobra.Command{
		Use:   "cycle",
		Short: "Advance to the next variant (demo affordance)",
		Long: `Advance the assignment to the next variant in the fixed order, wrapping
around, and persist it. This is the manual override for demos and tests,
not part of the organic experiment path.`,
		RunE: runVariantCycle,
	})

	rootCmd.AddCommand(variantCmd)
}

func runVariantShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		assigner := variants.NewAssigner(s, catalog)
		id, content, err := assigner.Current(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Variant %s: %s\n", id, content.Name)
		fmt.Printf("  Title:    %s\n", content.Title)
		fmt.Printf("  Subtitle: %s\n", content.Subtitle)
		fmt.Printf("  CTA:      %s\n", content.CTA)
		fmt.Printf("  Reward:   %s\n", content.Reward)
		return nil
	})
}

func runVariantCycle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		assigner := variants.NewAssigner(s, catalog)
		id, content, err := assigner.Cycle(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Switched to variant %s (%s)\n", id, content.Name)
		return nil
	})
}
