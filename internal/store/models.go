package store

import (
	"fmt"
	"time"

	"github.com/vity-loop/vity-loop/internal/variants"
)

// SchemaVersion is stamped into every persisted record. Records carrying an
// unknown version are treated like corruption and replaced with defaults.
const SchemaVersion = 2

// Record is the single persisted experiment record for this install.
type Record struct {
	Version     int         `json:"version"`
	Variant     variants.ID `json:"variant"`
	Shown       bool        `json:"shown"`
	Dismissed   bool        `json:"dismissed"`
	Converted   bool        `json:"converted"`
	Impressions int         `json:"impressions"`
	LastShown   *time.Time  `json:"last_shown,omitempty"`
}

// Partial is a read-merge-write update: nil fields keep the stored value.
type Partial struct {
	Variant     *variants.ID
	Shown       *bool
	Dismissed   *bool
	Converted   *bool
	Impressions *int
	LastShown   *time.Time
}

// Event is one structured analytics record in the append-only log.
type Event struct {
	ID         int64
	Name       string
	Variant    variants.ID
	Properties map[string]any
	CreatedAt  time.Time
}

// VariantOutcome aggregates the funnel counts recorded for one treatment.
type VariantOutcome struct {
	Variant     variants.ID
	Impressions int
	Conversions int
	Dismissals  int
}

func defaultRecord() Record {
	return Record{
		Version: SchemaVersion,
		Variant: variants.Pick(),
	}
}

func (r Record) merge(p Partial) Record {
	if p.Variant != nil {
		r.Variant = *p.Variant
	}
	if p.Shown != nil {
		r.Shown = *p.Shown
	}
	if p.Dismissed != nil {
		r.Dismissed = *p.Dismissed
	}
	if p.Converted != nil {
		r.Converted = *p.Converted
	}
	if p.Impressions != nil {
		r.Impressions = *p.Impressions
	}
	if p.LastShown != nil {
		t := *p.LastShown
		r.LastShown = &t
	}
	return r
}

func (r Record) validate() error {
	if r.Version != SchemaVersion {
		return fmt.Errorf("unknown schema version %d", r.Version)
	}
	if !variants.Valid(r.Variant) {
		return fmt.Errorf("unknown variant %q", r.Variant)
	}
	if r.Impressions < 0 {
		return fmt.Errorf("negative impressions %d", r.Impressions)
	}
	return nil
}
