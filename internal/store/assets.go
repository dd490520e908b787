package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

// ReplaceAssets swaps the cached asset catalog for a fresh one and
// stamps the fetch time.
func (s *Store) ReplaceAssets(assets []domain.Asset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace assets: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM assets_cache`); err != nil {
		return fmt.Errorf("clear asset cache: %w", err)
	}
	for _, a := range assets {
		_, err := tx.Exec(`
			INSERT INTO assets_cache (symbol, name, exchange, asset_class, status)
			VALUES (?, ?, ?, ?, ?)`,
			a.Symbol, a.Name, a.Exchange, a.AssetClass, a.Status)
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", a.Symbol, err)
		}
	}
	_, err = tx.Exec(`
		INSERT INTO assets_cache_meta (id, fetched_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at`,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("stamp asset cache: %w", err)
	}
	return tx.Commit()
}

// Assets returns the cached catalog in symbol order.
func (s *Store) Assets() ([]domain.Asset, error) {
	rows, err := s.db.Query(`SELECT symbol, name, exchange, asset_class, status FROM assets_cache ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.Symbol, &a.Name, &a.Exchange, &a.AssetClass, &a.Status); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssetCacheStale reports whether the catalog is older than ttl or has
// never been fetched.
func (s *Store) AssetCacheStale(ttl time.Duration) (bool, error) {
	var fetchedAt int64
	err := s.db.QueryRow(`SELECT fetched_at FROM assets_cache_meta WHERE id = 1`).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("read asset cache stamp: %w", err)
	}
	age := time.Since(time.UnixMilli(fetchedAt))
	return age > ttl, nil
}
