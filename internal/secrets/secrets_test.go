package secrets

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "secrets"), log.New(io.Discard, "", 0))
}

func TestSetGetRoundTrip(t *testing.T) {
	s := testStore(t)
	want := domain.Credentials{KeyID: "PKTEST", SecretKey: "supersecret"}

	if err := s.Set("paper", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("paper")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := testStore(t)
	got, err := s.Get("live")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSealedFileIsNotPlaintext(t *testing.T) {
	s := testStore(t)
	if err := s.Set("paper", domain.Credentials{KeyID: "PKTEST", SecretKey: "hunter2"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := os.ReadFile(s.credentialPath("paper"))
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("secret stored in plaintext")
	}
}

func TestModesAreIndependent(t *testing.T) {
	s := testStore(t)
	if err := s.Set("paper", domain.Credentials{KeyID: "A", SecretKey: "a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("live")
	if err != nil {
		t.Fatalf("Get live: %v", err)
	}
	if got != nil {
		t.Errorf("live mode leaked paper credentials: %+v", got)
	}
}

func TestExistsAndDelete(t *testing.T) {
	s := testStore(t)

	ok, err := s.Exists("paper")
	if err != nil || ok {
		t.Fatalf("Exists before set = %v, %v", ok, err)
	}

	if err := s.Set("paper", domain.Credentials{KeyID: "X", SecretKey: "y"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = s.Exists("paper")
	if err != nil || !ok {
		t.Fatalf("Exists after set = %v, %v", ok, err)
	}

	if err := s.Delete("paper"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = s.Exists("paper")
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v", ok, err)
	}

	// Deleting twice is fine.
	if err := s.Delete("paper"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestRejectsUnknownMode(t *testing.T) {
	s := testStore(t)
	if err := s.Set("margin", domain.Credentials{}); err == nil {
		t.Error("Set accepted unknown mode")
	}
	if _, err := s.Get("margin"); err == nil {
		t.Error("Get accepted unknown mode")
	}
}

type fakeDBSource struct {
	creds   map[string]*domain.Credentials
	deleted []string
}

func (f *fakeDBSource) Credentials(mode string) (*domain.Credentials, error) {
	return f.creds[mode], nil
}

func (f *fakeDBSource) DeleteCredentials(mode string) error {
	f.deleted = append(f.deleted, mode)
	delete(f.creds, mode)
	return nil
}

func TestMigrateFromDB(t *testing.T) {
	s := testStore(t)
	db := &fakeDBSource{creds: map[string]*domain.Credentials{
		"paper": {KeyID: "PK1", SecretKey: "one"},
	}}

	if err := s.MigrateFromDB(db); err != nil {
		t.Fatalf("MigrateFromDB: %v", err)
	}

	got, err := s.Get("paper")
	if err != nil {
		t.Fatalf("Get after migrate: %v", err)
	}
	if got == nil || got.KeyID != "PK1" {
		t.Errorf("migrated credentials = %+v", got)
	}
	if len(db.deleted) != 1 || db.deleted[0] != "paper" {
		t.Errorf("database copy not removed: %v", db.deleted)
	}

	// Running again must not overwrite or fail.
	db.creds["paper"] = &domain.Credentials{KeyID: "PK2", SecretKey: "two"}
	if err := s.MigrateFromDB(db); err != nil {
		t.Fatalf("second MigrateFromDB: %v", err)
	}
	got, _ = s.Get("paper")
	if got.KeyID != "PK1" {
		t.Error("second migration overwrote sealed credentials")
	}
}
