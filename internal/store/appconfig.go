package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const mainConfigKey = "main"

// AppConfig returns the frontend-facing configuration document, an
// opaque JSON object. Returns "{}" when none has been stored.
func (s *Store) AppConfig() (string, error) {
	return s.configValue(mainConfigKey, "{}")
}

// SetAppConfig replaces the configuration document. The value must be
// a JSON object.
func (s *Store) SetAppConfig(value string) error {
	var check map[string]any
	if err := json.Unmarshal([]byte(value), &check); err != nil {
		return fmt.Errorf("set config: not a JSON object: %w", err)
	}
	return s.setConfigValue(mainConfigKey, value)
}

// UpdateAppConfig deep-merges a JSON patch into the stored document
// and returns the merged result. Object values merge recursively;
// anything else replaces.
func (s *Store) UpdateAppConfig(patch string) (string, error) {
	current, err := s.AppConfig()
	if err != nil {
		return "", err
	}
	var base, delta map[string]any
	if err := json.Unmarshal([]byte(current), &base); err != nil {
		return "", fmt.Errorf("update config: stored document corrupt: %w", err)
	}
	if err := json.Unmarshal([]byte(patch), &delta); err != nil {
		return "", fmt.Errorf("update config: patch is not a JSON object: %w", err)
	}

	merged := mergeJSON(base, delta)
	out, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("update config: %w", err)
	}
	if err := s.setConfigValue(mainConfigKey, string(out)); err != nil {
		return "", err
	}
	return string(out), nil
}

func mergeJSON(base, patch map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any)
	}
	for k, v := range patch {
		pv, pok := v.(map[string]any)
		bv, bok := base[k].(map[string]any)
		if pok && bok {
			base[k] = mergeJSON(bv, pv)
			continue
		}
		base[k] = v
	}
	return base
}

func (s *Store) configValue(key, def string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("read config %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setConfigValue(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write config %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteConfigValue(key string) error {
	if _, err := s.db.Exec(`DELETE FROM config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete config %s: %w", key, err)
	}
	return nil
}
