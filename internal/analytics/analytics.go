// Package analytics records the structured event stream for the experiment.
// The sink here is the local event log; the envelope and contract match what
// a network analytics client (Mixpanel, Amplitude) would receive.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

// Event names emitted by the experiment core.
const (
	EventMessageSent    = "user_message_sent"
	EventModalShown     = "referral_modal_shown"
	EventLinkCopied     = "referral_link_copied"
	EventModalDismissed = "referral_modal_dismissed"
)

const userIDKey = "user_id"

// Sink is the slice of the store the recorder writes through.
type Sink interface {
	AppendEvent(ctx context.Context, event store.Event) error
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Recorder enriches raw events with the standard envelope (platform, variant
// id and label, per-install user id, ISO-8601 timestamp, per-session id) and
// appends them to the sink. Tracking is best-effort: sink failures are
// logged, never surfaced, so a broken log can't stall the state machine.
type Recorder struct {
	sink     Sink
	log      zerolog.Logger
	platform string

	sessionID string // lazily generated, cached for the session's lifetime
	now       func() time.Time
}

func NewRecorder(sink Sink, platform string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		sink:     sink,
		log:      logger,
		platform: platform,
		now:      time.Now,
	}
}

// UserID returns the stable per-install user identifier, generating and
// persisting one on first use.
func (r *Recorder) UserID(ctx context.Context) (string, error) {
	id, err := r.sink.Setting(ctx, userIDKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}

	id = "demo_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	if err := r.sink.SetSetting(ctx, userIDKey, id); err != nil {
		return "", fmt.Errorf("failed to persist user id: %w", err)
	}
	return id, nil
}

// SessionID returns the per-session identifier, generated once and cached.
func (r *Recorder) SessionID() string {
	if r.sessionID == "" {
		r.sessionID = "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	}
	return r.sessionID
}

// Track appends one event to the sink. The variant label is resolved by the
// caller so the recorder stays independent of the content catalog.
func (r *Recorder) Track(ctx context.Context, name string, variant variants.ID, variantName string, props map[string]any) {
	properties := make(map[string]any, len(props)+6)
	for k, v := range props {
		properties[k] = v
	}
	properties["platform"] = r.platform
	properties["variant"] = string(variant)
	properties["variant_name"] = variantName
	properties["timestamp"] = r.now().UTC().Format(time.RFC3339)
	properties["session_id"] = r.SessionID()

	userID, err := r.UserID(ctx)
	if err != nil {
		r.log.Warn().Err(err).Str("component", "analytics").Msg("user id unavailable")
	} else {
		properties["user_id"] = userID
	}

	event := store.Event{
		Name:       name,
		Variant:    variant,
		Properties: properties,
		CreatedAt:  r.now(),
	}

	if err := r.sink.AppendEvent(ctx, event); err != nil {
		r.log.Warn().Err(err).Str("component", "analytics").Str("event", name).Msg("failed to record event")
		return
	}

	r.log.Debug().Str("component", "analytics").Str("event", name).Str("variant", string(variant)).Msg("event recorded")
}
