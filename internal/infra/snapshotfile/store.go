// Package snapshotfile persists the profile snapshot as a JSON file so it
// survives restarts. It is the local equivalent of a browser's durable
// key-value storage: one documented key, read on cold start, written on
// every avatar mutation, cleared on sign-out.
package snapshotfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gfranca/conta-gateway-go/internal/domain"
)

// Key is the single documented snapshot key. It names the payload version
// so a future shape change can start clean instead of misreading old data.
const Key = "conta.profile_snapshot.v1"

// Store is a file-backed snapshot store. All methods are safe for
// concurrent use from any surface.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store rooted at dir. The directory is created on first
// write, not here, so a read-only cold start never fails.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, Key+".json")}
}

// Load returns the persisted snapshot, or nil when none exists. A corrupt
// file reads as nil: the snapshot is a display hint, never a source of
// truth, so the safe recovery is to behave like a cold start.
func (s *Store) Load() (*domain.ProfileSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap domain.ProfileSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

// Save persists the full snapshot atomically (write temp file, rename).
func (s *Store) Save(snap *domain.ProfileSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the persisted snapshot. Missing file is fine: clearing is
// idempotent because it runs on every sign-out.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
