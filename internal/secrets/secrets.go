// Package secrets stores broker credentials encrypted at rest. Each
// trading mode gets its own age-encrypted file under the secrets
// directory, sealed to an X25519 identity generated on first use.
package secrets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

const identityFile = "identity.age"

// Store seals and unseals credential files. Safe for concurrent use;
// file operations are atomic enough for the single-process supervisor.
type Store struct {
	dir    string
	logger *log.Logger
}

// New returns a store rooted at dir. The directory is created lazily
// on first write.
func New(dir string, logger *log.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) credentialPath(mode string) string {
	return filepath.Join(s.dir, "alpaca_"+mode+".age")
}

// identity loads the sealing key, generating and persisting one when
// none exists yet.
func (s *Store) identity() (*age.X25519Identity, error) {
	path := filepath.Join(s.dir, identityFile)
	data, err := os.ReadFile(path)
	if err == nil {
		id, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("parse sealing identity: %w", err)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read sealing identity: %w", err)
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate sealing identity: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create secrets directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write sealing identity: %w", err)
	}
	s.logger.Printf("generated new sealing identity in %s", s.dir)
	return id, nil
}

// Set seals the key pair for mode.
func (s *Store) Set(mode string, creds domain.Credentials) error {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return err
	}
	id, err := s.identity()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, id.Recipient())
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}

	if err := os.WriteFile(s.credentialPath(mode), sealed.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write sealed credentials: %w", err)
	}
	return nil
}

// Get unseals the key pair for mode, or returns nil when none is
// stored.
func (s *Store) Get(mode string) (*domain.Credentials, error) {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.credentialPath(mode))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sealed credentials: %w", err)
	}

	id, err := s.identity()
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(bytes.NewReader(data), id)
	if err != nil {
		return nil, fmt.Errorf("unseal credentials: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unseal credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &creds, nil
}

// Exists reports whether sealed credentials are stored for mode.
func (s *Store) Exists(mode string) (bool, error) {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return false, err
	}
	_, err := os.Stat(s.credentialPath(mode))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the sealed credentials for mode. Deleting a missing
// entry is not an error.
func (s *Store) Delete(mode string) error {
	if err := domain.ValidateTradingMode(mode); err != nil {
		return err
	}
	err := os.Remove(s.credentialPath(mode))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete sealed credentials: %w", err)
	}
	return nil
}

// dbCredentialSource is the subset of the sqlite store the migration
// needs.
type dbCredentialSource interface {
	Credentials(mode string) (*domain.Credentials, error)
	DeleteCredentials(mode string) error
}

// MigrateFromDB moves plaintext credentials out of the database into
// sealed files. Already-sealed modes are left alone, so running this
// on every startup is safe.
func (s *Store) MigrateFromDB(src dbCredentialSource) error {
	for _, mode := range []string{"paper", "live"} {
		sealed, err := s.Exists(mode)
		if err != nil {
			return err
		}
		if sealed {
			continue
		}
		creds, err := src.Credentials(mode)
		if err != nil {
			return err
		}
		if creds == nil {
			continue
		}
		if err := s.Set(mode, *creds); err != nil {
			return err
		}
		if err := src.DeleteCredentials(mode); err != nil {
			return err
		}
		s.logger.Printf("migrated %s credentials into sealed storage", mode)
	}
	return nil
}
