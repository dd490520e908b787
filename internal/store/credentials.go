package store

import (
	"encoding/json"
	"fmt"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func credentialsKey(mode string) string {
	return "alpaca_credentials_" + mode
}

// SetCredentials stores an Alpaca key pair in the config table. This
// is the fallback path for hosts without the encrypted secrets store.
func (s *Store) SetCredentials(mode string, creds domain.Credentials) error {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return s.setConfigValue(credentialsKey(mode), string(data))
}

// Credentials returns the stored key pair for mode, or nil when none
// exists.
func (s *Store) Credentials(mode string) (*domain.Credentials, error) {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return nil, err
	}
	value, err := s.configValue(credentialsKey(mode), "")
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	var creds domain.Credentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &creds, nil
}

// DeleteCredentials removes the stored key pair for mode. Used after a
// successful migration into the encrypted secrets store.
func (s *Store) DeleteCredentials(mode string) error {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return err
	}
	return s.deleteConfigValue(credentialsKey(mode))
}
