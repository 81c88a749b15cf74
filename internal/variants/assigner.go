package variants

import (
	"context"
	"fmt"
)

// Store is the slice of the persistence layer the assigner needs.
type Store interface {
	CurrentVariant(ctx context.Context) (ID, error)
	SetVariant(ctx context.Context, id ID) (ID, error)
}

// Assigner resolves the persisted treatment to its content bundle and
// implements the manual cycle override. Random first assignment happens in
// the store when the record is created; the assigner only ever reads it or
// overwrites it explicitly.
type Assigner struct {
	store   Store
	catalog Catalog
}

func NewAssigner(store Store, catalog Catalog) *Assigner {
	return &Assigner{store: store, catalog: catalog}
}

// Current returns the persisted treatment and its content bundle.
func (a *Assigner) Current(ctx context.Context) (ID, Content, error) {
	id, err := a.store.CurrentVariant(ctx)
	if err != nil {
		return "", Content{}, fmt.Errorf("failed to read variant: %w", err)
	}
	return id, a.catalog[id], nil
}

// Cycle advances to the next treatment in the fixed order, persists it, and
// returns the new assignment. Manual testing affordance, not the organic path.
func (a *Assigner) Cycle(ctx context.Context) (ID, Content, error) {
	current, err := a.store.CurrentVariant(ctx)
	if err != nil {
		return "", Content{}, fmt.Errorf("failed to read variant: %w", err)
	}

	next, err := a.store.SetVariant(ctx, Next(current))
	if err != nil {
		return "", Content{}, fmt.Errorf("failed to persist variant: %w", err)
	}
	return next, a.catalog[next], nil
}
