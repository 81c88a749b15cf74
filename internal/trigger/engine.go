// Package trigger owns the experiment state machine: it consumes the
// canonical message stream, decides when to present the referral prompt,
// and processes the two terminal outcomes (conversion, dismissal).
package trigger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vity-loop/vity-loop/internal/analytics"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

// Dismissal triggers reported by the presentation surface.
const (
	ReasonCloseButton  = "close_button"
	ReasonNotNow       = "not_now"
	ReasonOverlayClick = "overlay_click"
)

// Surface renders the experiment prompt. Implementations report user actions
// back through Accept/Dismiss on the engine.
type Surface interface {
	Present(id variants.ID, content variants.Content)
	Toast(message string)
	Close()
	Progress(count, threshold int)
}

// Deliverer hands the share payload to the platform, best-effort.
type Deliverer interface {
	Deliver(payload string) error
}

// Tracker is the analytics boundary the engine emits through.
type Tracker interface {
	Track(ctx context.Context, name string, variant variants.ID, variantName string, props map[string]any)
	UserID(ctx context.Context) (string, error)
}

// Config holds the engine's tunables.
type Config struct {
	Threshold      int
	PresentDelay   time.Duration
	AutoCloseDelay time.Duration
	Cooldown       time.Duration
	ReferralBase   string
}

// Deps collects the engine's collaborators.
type Deps struct {
	Store    store.Store
	Assigner *variants.Assigner
	Catalog  variants.Catalog
	Surface  Surface
	Delivery Deliverer
	Tracker  Tracker
	Log      zerolog.Logger
}

type timer interface {
	Stop() bool
}

// Engine is the trigger state machine. All handlers run to completion under
// one lock; the only other entry points are the two fixed-duration timers,
// which re-acquire the lock before touching state.
type Engine struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps
	log  zerolog.Logger

	now   func() time.Time
	after func(time.Duration, func()) timer

	messageCount int
	active       bool // presentation currently visible
	accepted     bool // conversion happened, waiting on auto-close
	pending      timer
	closeTimer   timer
	openedAt     time.Time
}

func New(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:  cfg,
		deps: deps,
		log:  deps.Log,
		now:  time.Now,
		after: func(d time.Duration, fn func()) timer {
			return time.AfterFunc(d, fn)
		},
	}
}

// Start loads (creating if needed) the persisted record and logs where the
// experiment stands. Suppression is evaluated again before every
// presentation, so Start never has to fail.
func (e *Engine) Start(ctx context.Context) error {
	rec, err := e.deps.Store.Record(ctx)
	if err != nil {
		return fmt.Errorf("failed to load experiment record: %w", err)
	}

	switch {
	case rec.Converted:
		e.log.Debug().Str("component", "trigger").Msg("user already converted, engine inert")
	case e.inCooldown(rec):
		e.log.Debug().Str("component", "trigger").
			Time("last_shown", *rec.LastShown).
			Msg("dismissed recently, waiting for cooldown")
	default:
		e.log.Debug().Str("component", "trigger").
			Str("variant", string(rec.Variant)).
			Msg("experiment armed")
	}
	return nil
}

// OnSignal consumes one canonical "message sent" vote. It counts the vote,
// records it, and schedules a presentation once the threshold is reached and
// no suppression rule applies.
func (e *Engine) OnSignal(ctx context.Context, src string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.messageCount++
	count := e.messageCount

	rec, err := e.deps.Store.Record(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("record unavailable, signal dropped")
		return
	}

	e.deps.Surface.Progress(count, e.cfg.Threshold)
	e.deps.Tracker.Track(ctx, analytics.EventMessageSent, rec.Variant, e.variantName(rec.Variant), map[string]any{
		"message_number":   count,
		"detection_source": src,
	})

	if count < e.cfg.Threshold || e.active || e.pending != nil || !e.presentable(rec) {
		return
	}

	e.log.Debug().Str("component", "trigger").
		Int("count", count).
		Dur("delay", e.cfg.PresentDelay).
		Msg("threshold reached, scheduling presentation")
	e.pending = e.after(e.cfg.PresentDelay, func() {
		e.presentScheduled(ctx)
	})
}

// presentScheduled fires after the presentation delay. Gating is re-checked
// because the world may have moved on while the timer ran.
func (e *Engine) presentScheduled(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = nil
	if e.active {
		return
	}

	rec, err := e.deps.Store.Record(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("record unavailable, presentation skipped")
		return
	}
	if !e.presentable(rec) {
		return
	}

	e.present(ctx, rec)
}

// present transitions to Presenting: exactly one store write, exactly one
// impression, exactly one shown event. Callers hold the lock.
func (e *Engine) present(ctx context.Context, rec store.Record) {
	e.active = true
	e.accepted = false
	e.openedAt = e.now()

	impressions := rec.Impressions + 1
	shown := true
	nowT := e.now()
	updated, err := e.deps.Store.Update(ctx, store.Partial{
		Shown:       &shown,
		Impressions: &impressions,
		LastShown:   &nowT,
	})
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("failed to persist impression")
		updated = rec
		updated.Impressions = impressions
	}

	content := e.deps.Catalog[rec.Variant]
	e.deps.Surface.Present(rec.Variant, content)
	e.deps.Tracker.Track(ctx, analytics.EventModalShown, rec.Variant, content.Name, map[string]any{
		"message_count":     e.messageCount,
		"impressions_total": updated.Impressions,
	})

	e.log.Debug().Str("component", "trigger").Str("variant", string(rec.Variant)).Msg("presentation shown")
}

// Accept handles the user clicking the call to action: Presenting → Converted.
func (e *Engine) Accept(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.accepted {
		return
	}
	e.accepted = true

	timeToAction := e.now().Sub(e.openedAt)

	converted := true
	rec, err := e.deps.Store.Update(ctx, store.Partial{Converted: &converted})
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("failed to persist conversion")
	}

	refURL := e.cfg.ReferralBase
	if userID, idErr := e.deps.Tracker.UserID(ctx); idErr == nil {
		refURL += userID
	}

	// Delivery is fire-and-forget: the user clicked accept, and a clipboard
	// failure must not undo the conversion.
	payload := shareText(refURL)
	if err := e.deps.Delivery.Deliver(payload); err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("payload delivery failed")
	}

	e.deps.Surface.Toast("Link copied! Share on X or Discord")
	e.deps.Tracker.Track(ctx, analytics.EventLinkCopied, rec.Variant, e.variantName(rec.Variant), map[string]any{
		"time_to_action_seconds": roundSeconds(timeToAction),
		"referral_url":           refURL,
	})

	e.log.Debug().Str("component", "trigger").
		Float64("time_to_action", roundSeconds(timeToAction)).
		Msg("conversion recorded")

	e.closeTimer = e.after(e.cfg.AutoCloseDelay, e.autoClose)
}

func (e *Engine) autoClose() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closeTimer = nil
	if !e.active {
		return
	}
	e.deps.Surface.Close()
	e.active = false
	e.accepted = false
}

// Dismiss handles any of the three dismissal triggers: Presenting →
// cooldown-suppressed. The surface invokes it at most once per presentation;
// the active/accepted guards make later calls harmless anyway.
func (e *Engine) Dismiss(ctx context.Context, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.accepted {
		return
	}

	timeOnSurface := e.now().Sub(e.openedAt)

	dismissed := true
	nowT := e.now()
	rec, err := e.deps.Store.Update(ctx, store.Partial{Dismissed: &dismissed, LastShown: &nowT})
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("failed to persist dismissal")
	}

	e.deps.Tracker.Track(ctx, analytics.EventModalDismissed, rec.Variant, e.variantName(rec.Variant), map[string]any{
		"dismiss_type":          reason,
		"time_on_modal_seconds": roundSeconds(timeOnSurface),
	})

	e.log.Debug().Str("component", "trigger").Str("reason", reason).Msg("presentation dismissed")

	e.deps.Surface.Close()
	e.active = false
}

// ForceShow presents immediately, ignoring threshold and cooldown. Converted
// records stay terminal even here.
func (e *Engine) ForceShow(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.deps.Store.Record(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("component", "trigger").Msg("record unavailable, force-show skipped")
		return
	}
	if rec.Converted {
		e.log.Debug().Str("component", "trigger").Msg("force-show refused, user converted")
		return
	}

	e.cancelTimersLocked()
	if e.active {
		e.deps.Surface.Close()
		e.active = false
		e.accepted = false
	}

	e.present(ctx, rec)
}

// CycleVariant advances to the next treatment. If a presentation is on
// screen it is closed and immediately re-opened with the new content.
func (e *Engine) CycleVariant(ctx context.Context) (variants.ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, _, err := e.deps.Assigner.Cycle(ctx)
	if err != nil {
		return "", err
	}
	e.log.Debug().Str("component", "trigger").Str("variant", string(id)).Msg("variant cycled")

	if e.active && !e.accepted {
		e.deps.Surface.Close()
		e.active = false

		rec, err := e.deps.Store.Record(ctx)
		if err != nil {
			return id, fmt.Errorf("failed to reload record: %w", err)
		}
		e.present(ctx, rec)
	}

	return id, nil
}

// Stop cancels pending timers and closes any open presentation. Used on
// shutdown; persisted state is untouched.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimersLocked()
	if e.active {
		e.deps.Surface.Close()
		e.active = false
		e.accepted = false
	}
}

// MessageCount returns this session's canonical message count.
func (e *Engine) MessageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.messageCount
}

// presentable applies the suppression rules: converted is terminal, and a
// dismissal suppresses until the cooldown window has elapsed. The stored
// dismissed flag is never cleared; only its gating effect expires.
func (e *Engine) presentable(rec store.Record) bool {
	if rec.Converted {
		return false
	}
	return !e.inCooldown(rec)
}

func (e *Engine) inCooldown(rec store.Record) bool {
	if !rec.Dismissed || rec.LastShown == nil {
		return false
	}
	return e.now().Sub(*rec.LastShown) < e.cfg.Cooldown
}

func (e *Engine) cancelTimersLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	if e.closeTimer != nil {
		e.closeTimer.Stop()
		e.closeTimer = nil
	}
}

func (e *Engine) variantName(id variants.ID) string {
	return e.deps.Catalog[id].Name
}

func shareText(refURL string) string {
	return fmt.Sprintf("Stop explaining yourself to AI - @maximem_ai Vity is your Private Memory Vault. Privacy-first, ZDR compliant. Join beta: %s #Vity #AIMemory", refURL)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
