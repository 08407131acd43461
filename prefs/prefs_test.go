package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{name: "memory", store: func(*testing.T) Store { return NewMemoryStore() }},
		{name: "file", store: func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "prefs.json"))
		}},
	}

	for _, tt := range tests {
		s := tt.store(t)

		if _, err := s.Get("fxChainOrder"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: error = %v, want ErrNotFound", tt.name, err)
		}

		if err := s.Set("fxChainOrder", `["reverb","eq"]`); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		if err := s.Set("other", "x"); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		got, err := s.Get("fxChainOrder")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}

		if got != `["reverb","eq"]` {
			t.Fatalf("%s: Get = %q", tt.name, got)
		}
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")

	if err := NewFileStore(path).Set("k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := NewFileStore(path).Get("k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := NewFileStore(path)

	_, err := s.Get("k")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want decode error", err)
	}

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, err := s.Get("k"); err != nil || got != "v" {
		t.Fatalf("Get after rewrite = %q, %v", got, err)
	}
}
