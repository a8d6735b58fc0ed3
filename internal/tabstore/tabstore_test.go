package tabstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/msana/internal/errs"
)

func exercise(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get(KeyTabID); err != nil || ok {
		t.Fatalf("Get on empty store = ok:%v err:%v", ok, err)
	}
	if err := s.Set(KeyTabID, "abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(KeyActiveAccount, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(KeyTabID)
	if err != nil || !ok || v != "abc" {
		t.Errorf("Get(tabId) = %q %v %v, want abc", v, ok, err)
	}

	if err := s.Delete(KeyActiveAccount); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(KeyActiveAccount); ok {
		t.Error("activeAccount should be deleted")
	}
	if err := s.Delete("missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(KeyTabID); ok {
		t.Error("Clear should drop every key")
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFile(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "tab", "tab.json"))
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, f)
}

// TestFileSurvivesReopen simulates a tab process restart (a reload).
func TestFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tab.json")
	f1, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f1.Exists() {
		t.Error("file should not exist before the first write")
	}
	if err := f1.Set(KeyActiveAccount, "b@y.com"); err != nil {
		t.Fatal(err)
	}

	f2, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !f2.Exists() {
		t.Error("file should exist after a write")
	}
	v, ok, err := f2.Get(KeyActiveAccount)
	if err != nil || !ok || v != "b@y.com" {
		t.Errorf("reopened Get = %q %v %v, want b@y.com", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tab.json")
	if err := os.WriteFile(path, []byte("{oops"), 0600); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = f.Get(KeyTabID)
	var se *errs.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
