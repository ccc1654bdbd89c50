// Package sqlite persists aggregation state in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/state"
)

// Record keys for the four persisted collections.
const (
	keySettings = "settings"
	keySeenIDs  = "seen_ids"
	keyActive   = "active_alerts"
	keyNotified = "notified_keys"
)

// Store implements state.Store on a single-file SQLite database holding one
// JSON value per record key.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads all four records. Missing records yield zero values, so a
// fresh database starts the loop with empty bookkeeping.
func (s *Store) Load(ctx context.Context) (*state.State, error) {
	st := state.New()

	var settings domain.Settings
	if err := s.readJSON(ctx, keySettings, &settings); err != nil {
		return nil, err
	}
	st.Settings = settings

	var seen []string
	if err := s.readJSON(ctx, keySeenIDs, &seen); err != nil {
		return nil, err
	}
	st.Seen = state.NewSeenSet(seen, state.MaxSeenIDs)

	var active []domain.Alert
	if err := s.readJSON(ctx, keyActive, &active); err != nil {
		return nil, err
	}
	st.Active = active

	var notified []string
	if err := s.readJSON(ctx, keyNotified, &notified); err != nil {
		return nil, err
	}
	st.Notified = state.NewSeenSet(notified, state.MaxNotifiedKeys)

	return st, nil
}

// Save writes all four records inside one transaction so the collections
// can never drift apart across a crash.
func (s *Store) Save(ctx context.Context, st *state.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	records := []struct {
		key   string
		value any
	}{
		{keySettings, st.Settings},
		{keySeenIDs, st.Seen.Values()},
		{keyActive, st.Active},
		{keyNotified, st.Notified.Values()},
	}

	for _, rec := range records {
		data, err := json.Marshal(rec.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.key, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, rec.key, string(data))
		if err != nil {
			return fmt.Errorf("write %s: %w", rec.key, err)
		}
	}

	return tx.Commit()
}

// SaveSettings replaces only the settings record, used when seeding from a
// locations file.
func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, keySettings, string(data))
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// HasSettings reports whether a settings record exists at all, as opposed
// to one that decodes to the zero value.
func (s *Store) HasSettings(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE key = ?`, keySettings).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read settings: %w", err)
	}
	return true, nil
}

func (s *Store) readJSON(ctx context.Context, key string, dst any) error {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
