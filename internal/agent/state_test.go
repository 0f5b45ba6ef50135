package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateFile_LoadAbsent(t *testing.T) {
	s := NewStateFile(filepath.Join(t.TempDir(), "state.json"))

	v, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty version for absent state, got %q", v)
	}
}

func TestStateFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStateFile(path)

	if err := s.Save("12345"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	v, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != "12345" {
		t.Errorf("expected version %q, got %q", "12345", v)
	}

	// Overwrites replace, not append.
	if err := s.Save("67890"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, err = s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != "67890" {
		t.Errorf("expected version %q, got %q", "67890", v)
	}
}

func TestStateFile_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewStateFile(path).Load(); err == nil {
		t.Fatal("expected an error for a corrupt state file")
	}
}
