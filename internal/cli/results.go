package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/stats"
	"github.com/vity-loop/vity-loop/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show per-variant funnel results",
	Long:  `Show impressions, conversions, rates, and confidence intervals per variant, computed from the recorded analytics events.`,
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		rec, err := s.Record(ctx)
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}

		outcomes, err := s.VariantOutcomes(ctx)
		if err != nil {
			return fmt.Errorf("failed to get outcomes: %w", err)
		}

		result := stats.Analyze(catalog, outcomes)

		fmt.Printf("ASSIGNED VARIANT: %s (%s)\n", rec.Variant, catalog[rec.Variant].Name)
		fmt.Printf("CONVERTED: %v   DISMISSED: %v   IMPRESSIONS: %d\n", rec.Converted, rec.Dismissed, rec.Impressions)
		fmt.Println()

		fmt.Println("VARIANT           SHOWN    CONVERSIONS  RATE     95% CI")
		fmt.Println(strings.Repeat("─", 62))

		for i, v := range result.Variants {
			indicator := ""
			if i == result.Leading && v.Impressions > 0 {
				indicator = " ← LEADING"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
			if v.Impressions == 0 {
				ciStr = "N/A"
			}

			label := fmt.Sprintf("%s (%s)", v.ID, v.Name)
			if len(label) > 16 {
				label = label[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-11d  %-7s  %s%s\n",
				label,
				v.Impressions,
				v.Conversions,
				formatPercent(v.Rate),
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		leadingName := result.Variants[result.Leading].Name
		confPct := result.ConfidenceLevel * 100
		switch {
		case result.Confident:
			fmt.Printf("Statistical significance: %.1f%% confident \"%s\" is the winner\n", confPct, leadingName)
		case confPct >= 90:
			fmt.Printf("Statistical significance: %.1f%% confident \"%s\" beats control (not yet significant)\n", confPct, leadingName)
		default:
			fmt.Println("Statistical significance: Not enough data to determine a winner")
		}

		return nil
	})
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
