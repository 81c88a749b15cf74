package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/testutil"
	"github.com/vity-loop/vity-loop/internal/variants"
)

func TestRecord_CreatesDefaults(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	rec, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	if rec.Version != store.SchemaVersion {
		t.Errorf("got version %d, want %d", rec.Version, store.SchemaVersion)
	}
	if !variants.Valid(rec.Variant) {
		t.Errorf("got invalid variant %q", rec.Variant)
	}
	if rec.Shown || rec.Dismissed || rec.Converted {
		t.Errorf("default record has flags set: %+v", rec)
	}
	if rec.Impressions != 0 {
		t.Errorf("got %d impressions, want 0", rec.Impressions)
	}
	if rec.LastShown != nil {
		t.Errorf("got non-nil LastShown on default record")
	}
}

func TestRecord_ReadIsIdempotent(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	second, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}

	if first != second {
		t.Errorf("re-read changed the record: %+v vs %+v", first, second)
	}
}

func TestUpdate_MergeRoundTrip(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	before, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	shown := true
	impressions := 1
	lastShown := time.Now().Truncate(time.Second)
	updated, err := s.Update(ctx, store.Partial{
		Shown:       &shown,
		Impressions: &impressions,
		LastShown:   &lastShown,
	})
	if err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	// Untouched fields carry over from the prior record.
	if updated.Variant != before.Variant {
		t.Errorf("variant changed from %s to %s", before.Variant, updated.Variant)
	}
	if updated.Converted || updated.Dismissed {
		t.Errorf("unset flags were modified: %+v", updated)
	}
	if !updated.Shown || updated.Impressions != 1 {
		t.Errorf("partial fields not applied: %+v", updated)
	}
	if updated.LastShown == nil || !updated.LastShown.Equal(lastShown) {
		t.Errorf("got LastShown %v, want %v", updated.LastShown, lastShown)
	}

	// A fresh read returns the same merged record.
	reread, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}
	if reread.Impressions != 1 || !reread.Shown {
		t.Errorf("write did not persist: %+v", reread)
	}
}

func TestRecord_CorruptValueFallsBackToDefaults(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	// Damage the stored record directly.
	_, err := s.DB().Exec(
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		"vity_referral_state_v2", "{not json",
	)
	if err != nil {
		t.Fatalf("failed to corrupt state: %v", err)
	}

	rec, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("corruption surfaced as error: %v", err)
	}
	if !variants.Valid(rec.Variant) || rec.Converted {
		t.Errorf("got non-default record after corruption: %+v", rec)
	}

	// The replacement record is persisted, so reads settle down.
	again, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}
	if again != rec {
		t.Errorf("record unstable after recovery: %+v vs %+v", rec, again)
	}
}

func TestRecord_UnknownVersionFallsBackToDefaults(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, 0)`,
		"vity_referral_state_v2", `{"version":99,"variant":"A","converted":true}`,
	)
	if err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	rec, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if rec.Converted {
		t.Errorf("record with unknown version was trusted: %+v", rec)
	}
}

func TestSetVariant(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	id, err := s.SetVariant(ctx, variants.VariantC)
	if err != nil {
		t.Fatalf("failed to set variant: %v", err)
	}
	if id != variants.VariantC {
		t.Errorf("got variant %s, want C", id)
	}

	current, err := s.CurrentVariant(ctx)
	if err != nil {
		t.Fatalf("failed to read variant: %v", err)
	}
	if current != variants.VariantC {
		t.Errorf("got variant %s after set, want C", current)
	}

	if _, err := s.SetVariant(ctx, variants.ID("Z")); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestAppendAndListEvents(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	events := []store.Event{
		{Name: "user_message_sent", Variant: variants.VariantA, Properties: map[string]any{"message_number": float64(1)}},
		{Name: "referral_modal_shown", Variant: variants.VariantA},
		{Name: "referral_link_copied", Variant: variants.VariantA},
	}
	for _, e := range events {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	got, err := s.Events(ctx)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Name != "user_message_sent" || got[2].Name != "referral_link_copied" {
		t.Errorf("events out of insertion order: %v", got)
	}
	if got[0].Properties["message_number"] != float64(1) {
		t.Errorf("got properties %v, want message_number 1", got[0].Properties)
	}
	if got[1].Properties != nil {
		t.Errorf("got properties %v for event without any", got[1].Properties)
	}
}

func TestVariantOutcomes(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	seed := []store.Event{
		{Name: "referral_modal_shown", Variant: variants.VariantA},
		{Name: "referral_modal_shown", Variant: variants.VariantA},
		{Name: "referral_link_copied", Variant: variants.VariantA},
		{Name: "referral_modal_shown", Variant: variants.VariantB},
		{Name: "referral_modal_dismissed", Variant: variants.VariantB},
		{Name: "user_message_sent", Variant: variants.VariantB},
	}
	for _, e := range seed {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	outcomes, err := s.VariantOutcomes(ctx)
	if err != nil {
		t.Fatalf("failed to get outcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}

	a, b := outcomes[0], outcomes[1]
	if a.Variant != variants.VariantA || a.Impressions != 2 || a.Conversions != 1 || a.Dismissals != 0 {
		t.Errorf("unexpected outcome for A: %+v", a)
	}
	if b.Variant != variants.VariantB || b.Impressions != 1 || b.Conversions != 0 || b.Dismissals != 1 {
		t.Errorf("unexpected outcome for B: %+v", b)
	}
}

func TestSettings(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.Setting(ctx, "user_id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v for missing setting, want ErrNotFound", err)
	}

	if err := s.SetSetting(ctx, "user_id", "demo_abc123def"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}

	value, err := s.Setting(ctx, "user_id")
	if err != nil {
		t.Fatalf("failed to read setting: %v", err)
	}
	if value != "demo_abc123def" {
		t.Errorf("got %q, want demo_abc123def", value)
	}
}

func TestReset(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	converted := true
	if _, err := s.Update(ctx, store.Partial{Converted: &converted}); err != nil {
		t.Fatalf("failed to update record: %v", err)
	}
	if err := s.AppendEvent(ctx, store.Event{Name: "referral_modal_shown", Variant: variants.VariantA}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	if err := s.Reset(ctx, false); err != nil {
		t.Fatalf("failed to reset: %v", err)
	}

	rec, err := s.Record(ctx)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if rec.Converted {
		t.Error("record survived reset")
	}

	events, err := s.Events(ctx)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("plain reset purged events, got %d want 1", len(events))
	}

	if err := s.Reset(ctx, true); err != nil {
		t.Fatalf("failed to reset with purge: %v", err)
	}
	events, err = s.Events(ctx)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("purge left %d events", len(events))
	}
}
