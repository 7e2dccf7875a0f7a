package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps the credentials in a JSON file mapping API URL to AuthData.
// It is meant for single instance deployments.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ CredentialStore = (*FileStore)(nil)

// NewFileStore creates a store backed by path; the file is created on first Set
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]AuthData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]AuthData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apl: read %s: %w", s.path, err)
	}
	entries := map[string]AuthData{}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("apl: decode %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]AuthData) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("apl: encode: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("apl: create %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("apl: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("apl: replace %s: %w", s.path, err)
	}
	return nil
}

// Get returns the credentials stored for apiURL
func (s *FileStore) Get(_ context.Context, apiURL string) (*AuthData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	data, ok := entries[apiURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, apiURL)
	}
	return &data, nil
}

// Set stores or replaces the credentials for data.APIURL
func (s *FileStore) Set(_ context.Context, data AuthData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[data.APIURL] = data
	return s.save(entries)
}

// Delete removes the credentials for apiURL; deleting a missing entry is not an error
func (s *FileStore) Delete(_ context.Context, apiURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[apiURL]; !ok {
		return nil
	}
	delete(entries, apiURL)
	return s.save(entries)
}

// All returns every stored credential ordered by API URL
func (s *FileStore) All(_ context.Context) ([]AuthData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]AuthData, 0, len(entries))
	for _, data := range entries {
		out = append(out, data)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].APIURL < out[j].APIURL })
	return out, nil
}
