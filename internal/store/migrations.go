package store

import (
	"fmt"
	"time"
)

type migration struct {
	name string
	sql  string
}

// migrations run in order after the base schema. Names are recorded in
// the migrations table so each applies exactly once.
var migrations = []migration{
	{
		name: "001_source_health",
		sql: `
CREATE TABLE IF NOT EXISTS source_health (
	source TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('healthy','degraded','down')),
	last_tick INTEGER,
	last_error TEXT,
	checked_at INTEGER NOT NULL
);`,
	},
	{
		name: "002_backtests",
		sql: `
CREATE TABLE IF NOT EXISTS backtests (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	config TEXT NOT NULL,
	results TEXT,
	error TEXT,
	ticks_processed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	completed_at INTEGER
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	id TEXT PRIMARY KEY,
	backtest_id TEXT NOT NULL REFERENCES backtests(id),
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	timestamp INTEGER NOT NULL,
	pnl REAL NOT NULL DEFAULT 0,
	reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_backtest ON backtest_trades(backtest_id);`,
	},
	{
		name: "003_assets_cache",
		sql: `
CREATE TABLE IF NOT EXISTS assets_cache (
	symbol TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	exchange TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assets_cache_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at INTEGER NOT NULL
);`,
	},
}

// runPendingMigrations applies every migration not yet recorded and
// returns the names it applied.
func (s *Store) runPendingMigrations() ([]string, error) {
	var applied []string
	for _, m := range migrations {
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM migrations WHERE name = ?`, m.name).Scan(&n)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		_, err = s.db.Exec(`INSERT INTO migrations (name, applied_at) VALUES (?, ?)`,
			m.name, time.Now().UnixMilli())
		if err != nil {
			return applied, fmt.Errorf("record migration %s: %w", m.name, err)
		}
		applied = append(applied, m.name)
	}
	return applied, nil
}

// AppliedMigrations lists recorded migration names in apply order.
func (s *Store) AppliedMigrations() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM migrations ORDER BY applied_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
