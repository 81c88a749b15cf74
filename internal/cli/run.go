package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/signals"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/trigger"
)

var feedPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a recorded signal feed through the engine",
	Long: `Replay a JSONL feed of raw platform signals through the full pipeline:
detectors, aggregator, trigger state machine, and analytics log.

Each line is one event. Supported types: key, click, mutation, container,
accept, dismiss, force_show, cycle_variant, wait.

Examples:
  vity-loop run --feed session.jsonl
  cat session.jsonl | vity-loop run --feed -`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&feedPath, "feed", "f", "-", "JSONL signal feed ('-' for stdin)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if feedPath != "" && feedPath != "-" {
		f, err := os.Open(feedPath)
		if err != nil {
			return fmt.Errorf("failed to open feed: %w", err)
		}
		defer f.Close()
		in = f
	}

	feed, err := signals.ReadFeed(in)
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		engine, _ := buildEngine(cfg, s, catalog, nil)
		defer engine.Stop()

		if err := engine.Start(ctx); err != nil {
			return err
		}

		aggregator := signals.NewAggregator(func(src signals.Source) {
			engine.OnSignal(ctx, string(src))
		}, cfg.Logger())

		if err := replay(ctx, feed, aggregator, engine); err != nil {
			return err
		}

		// Let a pending presentation and auto-close run out before exiting.
		time.Sleep(cfg.PresentDelay + cfg.AutoCloseDelay + 100*time.Millisecond)
		return nil
	})
}

func replay(ctx context.Context, feed []signals.FeedEvent, aggregator *signals.Aggregator, engine *trigger.Engine) error {
	for _, ev := range feed {
		switch ev.Type {
		case signals.FeedKey:
			target := signals.Node{}
			if ev.Target != nil {
				target = *ev.Target
			}
			aggregator.HandleKey(signals.KeyPress{Key: ev.Key, Shift: ev.Shift, Target: target})
		case signals.FeedClick:
			target := signals.Node{}
			if ev.Target != nil {
				target = *ev.Target
			}
			aggregator.HandleClick(signals.Click{Target: target})
		case signals.FeedMutation:
			aggregator.HandleMutation(signals.Mutation{Added: ev.Added})
		case signals.FeedContainer:
			aggregator.AttachObserver()
		case signals.FeedAccept:
			engine.Accept(ctx)
		case signals.FeedDismiss:
			reason := ev.Reason
			if reason == "" {
				reason = trigger.ReasonCloseButton
			}
			engine.Dismiss(ctx, reason)
		case signals.FeedForceShow:
			engine.ForceShow(ctx)
		case signals.FeedCycleVariant:
			if _, err := engine.CycleVariant(ctx); err != nil {
				return fmt.Errorf("failed to cycle variant: %w", err)
			}
		case signals.FeedWait:
			d, err := ev.WaitDuration()
			if err != nil {
				return err
			}
			time.Sleep(d)
		default:
			return fmt.Errorf("unknown feed event type %q", ev.Type)
		}
	}
	return nil
}
