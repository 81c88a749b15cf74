package cli

import (
	"fmt"
	"os"

	"github.com/vity-loop/vity-loop/internal/analytics"
	"github.com/vity-loop/vity-loop/internal/config"
	"github.com/vity-loop/vity-loop/internal/delivery"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/surface"
	"github.com/vity-loop/vity-loop/internal/trigger"
	"github.com/vity-loop/vity-loop/internal/variants"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// loadConfig resolves the runtime config from env plus the global flags.
func loadConfig() (config.Config, error) {
	cfg := config.FromEnv()
	cfg.DBPath = dbPath
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadCatalog returns the variant content bundles, preferring the external
// file when one is configured.
func loadCatalog(cfg config.Config) (variants.Catalog, error) {
	if cfg.VariantsFile == "" {
		return variants.Builtin(), nil
	}
	catalog, err := variants.Load(cfg.VariantsFile)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// buildEngine wires the full pipeline around an open store.
func buildEngine(cfg config.Config, s *store.SQLiteStore, catalog variants.Catalog, deliverer trigger.Deliverer) (*trigger.Engine, *analytics.Recorder) {
	logger := cfg.Logger()
	recorder := analytics.NewRecorder(s, cfg.Platform, logger)
	assigner := variants.NewAssigner(s, catalog)
	console := surface.NewConsole(os.Stdout, cfg.Debug)

	if deliverer == nil {
		deliverer = delivery.Clipboard{}
	}

	engine := trigger.New(trigger.Config{
		Threshold:      cfg.TriggerThreshold,
		PresentDelay:   cfg.PresentDelay,
		AutoCloseDelay: cfg.AutoCloseDelay,
		Cooldown:       cfg.CooldownWindow,
		ReferralBase:   cfg.ReferralBase,
	}, trigger.Deps{
		Store:    s,
		Assigner: assigner,
		Catalog:  catalog,
		Surface:  console,
		Delivery: deliverer,
		Tracker:  recorder,
		Log:      logger,
	})

	return engine, recorder
}
