package signals

import (
	"strings"

	"github.com/rs/zerolog"
)

// Handler receives one canonical "message sent" vote per detector call.
type Handler func(Source)

// submitKey is the designated key that sends a message when pressed without
// the line-break modifier.
const submitKey = "Enter"

// isComposer reports whether the target is a text-entry surface: a textarea,
// an editable region, a textbox role, or anything inside a composer container.
func isComposer(target Node) bool {
	if strings.EqualFold(target.Tag, "textarea") || target.Editable || target.Role == "textbox" {
		return true
	}
	if _, ok := target.Closest(func(n Node) bool { return n.Editable }); ok {
		return true
	}
	_, ok := target.Closest(func(n Node) bool { return containsFold(n.TestID, "composer") })
	return ok
}

// detectKey fires for the submit key pressed without shift on a non-empty
// text-entry surface.
func detectKey(ev KeyPress) bool {
	if ev.Key != submitKey || ev.Shift {
		return false
	}
	if !isComposer(ev.Target) {
		return false
	}
	return strings.TrimSpace(ev.Target.Content) != ""
}

// detectClick fires when the click lands on (or inside) a send affordance:
// a button whose test id or label marks it as "send", or a submit button
// inside a form.
func detectClick(ev Click) bool {
	_, ok := ev.Target.Closest(func(n Node) bool {
		if !strings.EqualFold(n.Tag, "button") {
			return false
		}
		if containsFold(n.TestID, "send") || containsFold(n.Label, "send") {
			return true
		}
		if n.Type != "submit" {
			return false
		}
		_, inForm := n.Closest(func(a Node) bool { return strings.EqualFold(a.Tag, "form") })
		return inForm
	})
	return ok
}

// countUserMessages returns one vote per inserted node that is, or contains,
// an element authored by the user.
func countUserMessages(ev Mutation) int {
	votes := 0
	for _, node := range ev.Added {
		if node.Contains(func(n Node) bool { return n.AuthorRole == "user" }) {
			votes++
		}
	}
	return votes
}

// Aggregator merges the three detectors into a single canonical stream.
type Aggregator struct {
	handler  Handler
	log      zerolog.Logger
	observed bool // structural observer attached to the conversation container
}

func NewAggregator(handler Handler, logger zerolog.Logger) *Aggregator {
	return &Aggregator{handler: handler, log: logger}
}

// HandleKey runs the key-based detector over a raw keystroke.
func (a *Aggregator) HandleKey(ev KeyPress) {
	if detectKey(ev) {
		a.emit(SourceKeyboard)
	}
}

// HandleClick runs the pointer-based detector over a raw click.
func (a *Aggregator) HandleClick(ev Click) {
	if detectClick(ev) {
		a.emit(SourceClick)
	}
}

// AttachObserver marks the conversation container as available. Mutations
// arriving before attachment are dropped; the other detectors keep working.
func (a *Aggregator) AttachObserver() {
	if a.observed {
		return
	}
	a.observed = true
	a.log.Debug().Str("component", "signals").Msg("observer attached")
}

// Attached reports whether the structural observer is active.
func (a *Aggregator) Attached() bool {
	return a.observed
}

// HandleMutation runs the structural-mutation detector over an insertion
// batch. One vote is emitted per inserted user-authored message node.
func (a *Aggregator) HandleMutation(ev Mutation) {
	if !a.observed {
		return
	}
	for i := 0; i < countUserMessages(ev); i++ {
		a.emit(SourceDOM)
	}
}

func (a *Aggregator) emit(src Source) {
	a.log.Debug().Str("component", "signals").Str("source", string(src)).Msg("message detected")
	a.handler(src)
}
