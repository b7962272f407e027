package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable medium. It survives full restarts and has a
// configurable per-value capacity limit standing in for the medium's quota.
type SQLiteStore struct {
	db       *sql.DB
	maxValue int
	log      zerolog.Logger
}

// DefaultMaxValueBytes bounds a single stored value. Avatar payloads can be
// large inline images; anything beyond this is a quota failure, not an error.
const DefaultMaxValueBytes = 2 << 20

// ErrValueTooLarge is logged (never returned to callers) when a value
// exceeds the capacity limit.
var ErrValueTooLarge = errors.New("value exceeds capacity limit")

// NewSQLite opens (creating if needed) the durable store at dbPath.
func NewSQLite(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps reads cheap while the engine writes through.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, maxValue: DefaultMaxValueBytes, log: log.With().Str("medium", durableMedium).Logger()}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

const durableMedium = "durable"

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Name identifies the medium in logs and metrics.
func (s *SQLiteStore) Name() string { return durableMedium }

// Get returns the stored JSON for key. Corrupted bytes are replaced with
// the placeholder and reported absent; medium faults read as absent.
func (s *SQLiteStore) Get(key string) (string, bool) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return "", false
	case err != nil:
		s.log.Warn().Err(err).Str("key", key).Msg("durable read failed")
		return "", false
	}
	if !usable(raw) {
		if raw != Placeholder {
			corruptionRepairsTotal.WithLabelValues(durableMedium).Inc()
			s.log.Warn().Str("key", key).Msg("repairing corrupted durable entry")
			s.Set(key, Placeholder)
		}
		return "", false
	}
	return raw, true
}

// Set upserts the value, reporting false when the write fails or the value
// exceeds the capacity limit.
func (s *SQLiteStore) Set(key, valueJSON string) bool {
	if len(valueJSON) > s.maxValue {
		writeFailuresTotal.WithLabelValues(durableMedium).Inc()
		s.log.Warn().Str("key", key).Int("size", len(valueJSON)).Err(ErrValueTooLarge).Msg("durable write rejected")
		return false
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, valueJSON, time.Now().Unix(),
	)
	if err != nil {
		writeFailuresTotal.WithLabelValues(durableMedium).Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("durable write failed")
		return false
	}
	return true
}

// Remove deletes the key; missing keys are not an error.
func (s *SQLiteStore) Remove(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("durable remove failed")
	}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
