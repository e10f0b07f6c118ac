package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Store is a small JSON-backed key/value preference file, the local
// equivalent of a mobile app's preference storage. Values are rewritten as a
// whole on every set; the payload is a handful of keys at most.
type Store struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// New returns a preference store persisting to path on the OS filesystem.
func New(path string) *Store {
	return NewWithFs(afero.NewOsFs(), path)
}

// NewWithFs returns a preference store on the supplied filesystem. Tests use
// afero.NewMemMapFs().
func NewWithFs(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Int returns the integer stored under key, or 0 when absent.
func (s *Store) Int(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return 0
	}
	var n int
	if raw, ok := values[key]; ok {
		_ = json.Unmarshal(raw, &n)
	}
	return n
}

// SetInt stores an integer under key.
func (s *Store) SetInt(key string, value int) error {
	return s.set(key, value)
}

// Time returns the timestamp stored under key, or the zero time when absent.
func (s *Store) Time(key string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return time.Time{}
	}
	var t time.Time
	if raw, ok := values[key]; ok {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

// SetTime stores a timestamp under key.
func (s *Store) SetTime(key string, value time.Time) error {
	return s.set(key, value)
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal preference %q: %w", key, err)
	}
	values[key] = raw

	return s.save(values)
}

func (s *Store) load() (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	values := map[string]json.RawMessage{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	return values, nil
}

func (s *Store) save(values map[string]json.RawMessage) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create preferences directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
