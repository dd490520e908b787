package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

// UpsertSourceHealth records the latest condition of a data source.
func (s *Store) UpsertSourceHealth(h domain.SourceHealth) error {
	if h.CheckedAt == 0 {
		h.CheckedAt = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(`
		INSERT INTO source_health (source, status, last_tick, last_error, checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			status = excluded.status,
			last_tick = excluded.last_tick,
			last_error = excluded.last_error,
			checked_at = excluded.checked_at`,
		h.Source, string(h.Status), nullInt(h.LastTick), nullable(h.LastError), h.CheckedAt)
	if err != nil {
		return fmt.Errorf("upsert source health: %w", err)
	}
	return nil
}

// SourceHealthMap returns the latest condition of every known source,
// keyed by source name.
func (s *Store) SourceHealthMap() (map[string]domain.SourceHealth, error) {
	rows, err := s.db.Query(`SELECT source, status, last_tick, last_error, checked_at FROM source_health`)
	if err != nil {
		return nil, fmt.Errorf("list source health: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.SourceHealth)
	for rows.Next() {
		var (
			h        domain.SourceHealth
			lastTick sql.NullInt64
			lastErr  sql.NullString
		)
		if err := rows.Scan(&h.Source, &h.Status, &lastTick, &lastErr, &h.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan source health: %w", err)
		}
		h.LastTick = lastTick.Int64
		h.LastError = lastErr.String
		out[h.Source] = h
	}
	return out, rows.Err()
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
