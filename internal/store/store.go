// Package store persists monitoring state in an embedded sqlite
// database: detected anomalies, analyst feedback, backtest runs,
// source health, app configuration, and the broker asset cache.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const baseSchema = `
CREATE TABLE IF NOT EXISTS migrations (
	name TEXT PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS anomalies (
	id TEXT PRIMARY KEY,
	severity TEXT NOT NULL CHECK (severity IN ('low','medium','high','critical')),
	source TEXT NOT NULL,
	symbol TEXT,
	timestamp INTEGER NOT NULL,
	description TEXT NOT NULL,
	metrics TEXT NOT NULL DEFAULT '{}',
	pre_screen_score REAL NOT NULL DEFAULT 0,
	session_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_anomalies_timestamp ON anomalies(timestamp);
CREATE INDEX IF NOT EXISTS idx_anomalies_severity ON anomalies(severity);

CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	anomaly_id TEXT NOT NULL REFERENCES anomalies(id),
	verdict TEXT NOT NULL CHECK (verdict IN ('confirmed','false_positive','unsure')),
	note TEXT,
	timestamp INTEGER NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_feedback_anomaly ON feedback(anomaly_id);
`

// Store wraps the sqlite handle. All methods are safe for concurrent
// use; sqlite serializes writers internally.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates or opens the database at path, applies the base schema,
// and runs any pending migrations. Parent directories are created as
// needed.
func Open(path string, logger *log.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(baseSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply base schema: %w", err)
	}

	s := &Store{db: db, logger: logger}
	applied, err := s.runPendingMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, name := range applied {
		logger.Printf("applied migration %s", name)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
