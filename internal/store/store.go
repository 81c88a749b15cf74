package store

import (
	"context"

	"github.com/vity-loop/vity-loop/internal/variants"
)

// Store defines the persistence operations the engine depends on.
type Store interface {
	// Experiment record
	Record(ctx context.Context) (Record, error)
	Update(ctx context.Context, partial Partial) (Record, error)
	Reset(ctx context.Context, purgeEvents bool) error

	// Variant assignment (narrow view used by variants.Assigner)
	CurrentVariant(ctx context.Context) (variants.ID, error)
	SetVariant(ctx context.Context, id variants.ID) (variants.ID, error)

	// Analytics event log
	AppendEvent(ctx context.Context, event Event) error
	Events(ctx context.Context) ([]Event, error)
	VariantOutcomes(ctx context.Context) ([]VariantOutcome, error)

	// Install-scoped settings (per-install user id and the like)
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}
