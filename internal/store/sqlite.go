package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vity-loop/vity-loop/internal/variants"
)

var ErrNotFound = errors.New("not found")

// recordKey is the fixed key the experiment record is stored under. The v2
// suffix tracks SchemaVersion.
const recordKey = "vity_referral_state_v2"

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    variant TEXT NOT NULL,
    properties TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_events_name ON events(name);
CREATE INDEX IF NOT EXISTS idx_events_variant ON events(variant, name);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record returns the experiment record, creating and persisting a default
// one (random variant, all flags clear) when the stored value is absent or
// does not deserialize. Corruption never propagates to the caller.
func (s *SQLiteStore) Record(ctx context.Context) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, recordKey,
	).Scan(&raw)

	if err == nil {
		var rec Record
		if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
			if valErr := rec.validate(); valErr == nil {
				return rec, nil
			}
		}
		// Malformed or unknown-version record: fall through to defaults.
	} else if err != sql.ErrNoRows {
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}

	rec := defaultRecord()
	if err := s.writeRecord(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update performs the read-merge-write cycle: the latest stored record is
// loaded, partial is merged over it, and the full result is written back.
func (s *SQLiteStore) Update(ctx context.Context, partial Partial) (Record, error) {
	current, err := s.Record(ctx)
	if err != nil {
		return Record{}, err
	}

	merged := current.merge(partial)
	if err := s.writeRecord(ctx, merged); err != nil {
		return Record{}, err
	}
	return merged, nil
}

func (s *SQLiteStore) writeRecord(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		recordKey, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Reset deletes the experiment record. With purgeEvents it also clears the
// analytics log and settings, equivalent to clearing browser storage.
func (s *SQLiteStore) Reset(ctx context.Context, purgeEvents bool) error {
	if purgeEvents {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return fmt.Errorf("failed to purge events: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM state`); err != nil {
			return fmt.Errorf("failed to purge state: %w", err)
		}
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, recordKey); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CurrentVariant(ctx context.Context) (variants.ID, error) {
	rec, err := s.Record(ctx)
	if err != nil {
		return "", err
	}
	return rec.Variant, nil
}

func (s *SQLiteStore) SetVariant(ctx context.Context, id variants.ID) (variants.ID, error) {
	if !variants.Valid(id) {
		return "", fmt.Errorf("unknown variant %q", id)
	}
	rec, err := s.Update(ctx, Partial{Variant: &id})
	if err != nil {
		return "", err
	}
	return rec.Variant, nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, event Event) error {
	var props sql.NullString
	if len(event.Properties) > 0 {
		data, err := json.Marshal(event.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties: %w", err)
		}
		props = sql.NullString{String: string(data), Valid: true}
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (name, variant, properties, created_at) VALUES (?, ?, ?, ?)`,
		event.Name, string(event.Variant), props, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, variant, properties, created_at FROM events ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var variant string
		var props sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Name, &variant, &props, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Variant = variants.ID(variant)
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
			}
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}

	return events, rows.Err()
}

func (s *SQLiteStore) VariantOutcomes(ctx context.Context) ([]VariantOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			variant,
			SUM(CASE WHEN name = 'referral_modal_shown' THEN 1 ELSE 0 END) AS impressions,
			SUM(CASE WHEN name = 'referral_link_copied' THEN 1 ELSE 0 END) AS conversions,
			SUM(CASE WHEN name = 'referral_modal_dismissed' THEN 1 ELSE 0 END) AS dismissals
		FROM events
		GROUP BY variant
		ORDER BY variant
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []VariantOutcome
	for rows.Next() {
		var o VariantOutcome
		var variant string
		if err := rows.Scan(&variant, &o.Impressions, &o.Conversions, &o.Dismissals); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Variant = variants.ID(variant)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

func (s *SQLiteStore) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
