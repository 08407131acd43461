// Package prefs stores small string preferences such as the persisted
// effect-chain order.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("prefs: key not found")

// Store is a string key-value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	return v, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

// FileStore persists preferences as a JSON object in one file. Every Set
// rewrites the file through a temporary file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}

	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	return v, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		// Corrupt content is discarded.
		values = map[string]string{}
	}

	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}

	dir := filepath.Dir(s.path)

	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	_, err = tmp.Write(append(data, '\n'))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("prefs: write: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("prefs: %w", err)
	}

	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}

	values := map[string]string{}

	err = json.Unmarshal(data, &values)
	if err != nil {
		return nil, fmt.Errorf("prefs: decode %s: %w", s.path, err)
	}

	if values == nil {
		values = map[string]string{}
	}

	return values, nil
}
