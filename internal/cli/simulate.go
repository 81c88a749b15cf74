package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/signals"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/trigger"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive the experiment interactively",
	Long: `Interactive simulator for the referral experiment. Each menu action
emits the same raw signal a real chat page would: pressing the submit key
in the composer, clicking the send button, a user message node appearing
in the conversation, and the prompt callbacks (accept, the three dismissal
triggers). Force-show and variant cycling mirror the original demo
shortcuts.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

// Canned raw signals, shaped like what the detectors see on a real page.
var (
	composerEnter = signals.KeyPress{
		Key: "Enter",
		Target: signals.Node{
			Tag:     "textarea",
			Content: "hello vity",
			Ancestors: []signals.Node{
				{Tag: "div", TestID: "composer-root"},
			},
		},
	}
	sendClick = signals.Click{
		Target: signals.Node{
			Tag: "svg",
			Ancestors: []signals.Node{
				{Tag: "button", TestID: "send-button"},
				{Tag: "form"},
			},
		},
	}
	userMessageInserted = signals.Mutation{
		Added: []signals.Node{
			{Tag: "article", Children: []signals.Node{
				{Tag: "div", AuthorRole: "user", Content: "hello vity"},
			}},
		},
	}
)

func runSimulate(cmd *cobra.Command, args []string) error {
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

		engine, recorder := buildEngine(cfg, s, catalog, nil)
		defer engine.Stop()

		if err := engine.Start(ctx); err != nil {
			return err
		}

		aggregator := signals.NewAggregator(func(src signals.Source) {
			engine.OnSignal(ctx, string(src))
		}, cfg.Logger())
		aggregator.AttachObserver()

		userID, err := recorder.UserID(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("🧪 Vity Growth Experiment — user %s, platform %s\n", userID, cfg.Platform)

		actions := []string{
			"Press Enter in composer",
			"Click send button",
			"User message node inserted",
			"Accept (copy referral link)",
			"Dismiss: close button",
			"Dismiss: not now",
			"Dismiss: overlay click",
			"Force show",
			"Cycle variant",
			"Show status",
			"Quit",
		}

		for {
			prompt := promptui.Select{
				Label: "Action",
				Items: actions,
				Size:  len(actions),
			}

			idx, _, err := prompt.Run()
			if err != nil {
				// Ctrl+C / Ctrl+D end the session.
				return nil
			}

			switch actions[idx] {
			case "Press Enter in composer":
				aggregator.HandleKey(composerEnter)
			case "Click send button":
				aggregator.HandleClick(sendClick)
			case "User message node inserted":
				aggregator.HandleMutation(userMessageInserted)
			case "Accept (copy referral link)":
				engine.Accept(ctx)
			case "Dismiss: close button":
				engine.Dismiss(ctx, trigger.ReasonCloseButton)
			case "Dismiss: not now":
				engine.Dismiss(ctx, trigger.ReasonNotNow)
			case "Dismiss: overlay click":
				engine.Dismiss(ctx, trigger.ReasonOverlayClick)
			case "Force show":
				engine.ForceShow(ctx)
			case "Cycle variant":
				id, err := engine.CycleVariant(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Switched to variant %s (%s)\n", id, catalog[id].Name)
			case "Show status":
				if err := printStatus(ctx, s, engine, cfg.TriggerThreshold); err != nil {
					return err
				}
			case "Quit":
				return nil
			}

			// Give the presentation timer a chance to fire before re-prompting.
			time.Sleep(cfg.PresentDelay + 100*time.Millisecond)
		}
	})
}

func printStatus(ctx context.Context, s *store.SQLiteStore, engine *trigger.Engine, threshold int) error {
	rec, err := s.Record(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("messages:    %d / %d (this session)\n", engine.MessageCount(), threshold)
	fmt.Printf("variant:     %s\n", rec.Variant)
	fmt.Printf("impressions: %d\n", rec.Impressions)
	fmt.Printf("converted:   %v\n", rec.Converted)
	fmt.Printf("dismissed:   %v\n", rec.Dismissed)
	if rec.LastShown != nil {
		fmt.Printf("last shown:  %s\n", rec.LastShown.Format(time.RFC3339))
	}
	return nil
}
