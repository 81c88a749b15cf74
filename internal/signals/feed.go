package signals

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Feed event types accepted by ReadFeed. The key/click/mutation types carry
// raw platform signals; container marks the conversation container becoming
// available; the rest are surface callbacks and manual overrides.
const (
	FeedKey          = "key"
	FeedClick        = "click"
	FeedMutation     = "mutation"
	FeedContainer    = "container"
	FeedAccept       = "accept"
	FeedDismiss      = "dismiss"
	FeedForceShow    = "force_show"
	FeedCycleVariant = "cycle_variant"
	FeedWait         = "wait"
)

// FeedEvent is one line of a JSONL signal feed, used to replay a recorded
// session through the full pipeline.
type FeedEvent struct {
	Type   string `json:"type"`
	Key    string `json:"key,omitempty"`
	Shift  bool   `json:"shift,omitempty"`
	Target *Node  `json:"target,omitempty"`
	Added  []Node `json:"added,omitempty"`
	Reason string `json:"reason,omitempty"` // dismiss trigger: close_button, not_now, overlay_click
	For    string `json:"for,omitempty"`    // wait duration, e.g. "2s"
}

// WaitDuration parses the duration of a wait event.
func (e FeedEvent) WaitDuration() (time.Duration, error) {
	d, err := time.ParseDuration(e.For)
	if err != nil {
		return 0, fmt.Errorf("invalid wait duration %q: %w", e.For, err)
	}
	return d, nil
}

// ReadFeed decodes a JSONL feed. Blank lines and #-comments are skipped.
func ReadFeed(r io.Reader) ([]FeedEvent, error) {
	var events []FeedEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var ev FeedEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("failed to parse feed line %d: %w", line, err)
		}
		if ev.Type == "" {
			return nil, fmt.Errorf("feed line %d missing type", line)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return events, nil
}
