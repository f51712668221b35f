package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the persistence collaborator: a namespaced key-value document
// store backed by SQLite. Each named collection (timers, alarms, reminders,
// pomodoro state, missed items, user settings, presets) is one JSON document
// that callers read, mutate and write back whole. Writes are synchronous;
// once a Save method returns the new state is durable.
type Store struct {
	db *sql.DB
}

// Collection names.
const (
	colTimers        = "timers"
	colAlarms        = "alarms"
	colReminders     = "reminders"
	colPomodoroState = "pomodoro_state"
	colPomodoroStats = "pomodoro_stats"
	colMissedItems   = "missed_items"
	colPresets       = "presets"
	colUserSettings  = "user_settings"
)

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS collections (
		name        TEXT PRIMARY KEY,
		doc         TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// getDoc unmarshals the named collection into out. It reports whether the
// collection existed; out is left untouched when it did not.
func (s *Store) getDoc(name string, out any) (bool, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM collections WHERE name = ?`, name).Scan(&doc)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get collection %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return false, fmt.Errorf("decode collection %q: %w", name, err)
	}
	return true, nil
}

// setDoc marshals v and writes it as the named collection's document.
func (s *Store) setDoc(name string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO collections (name, doc, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		 ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		name, string(doc),
	)
	if err != nil {
		return fmt.Errorf("set collection %q: %w", name, err)
	}
	return nil
}

// DefaultDBPath returns ~/.config/chime/chime.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "chime", "chime.db"), nil
}
