package store_test

import (
	"path/filepath"
	"testing"

	"github.com/rednimgames/rose-updater/store"
)

func TestBootstrapPhasePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	db, err := store.Open(path, 0600)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	err = db.Update(func(tx *store.Tx) error {
		return tx.SetBootstrapPhase("replacing_self")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	db.Close()

	reopened, err := store.Open(path, 0600)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var phase string
	err = reopened.View(func(tx *store.Tx) error {
		phase = tx.BootstrapPhase()
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if phase != "replacing_self" {
		t.Fatalf("phase = %q, want %q", phase, "replacing_self")
	}
}

func TestRunIDDefaultsEmpty(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "state.db"), 0600)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var id string
	err = db.View(func(tx *store.Tx) error {
		id = tx.RunID()
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty run id, got %q", id)
	}
}
