package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Settings holds everything the application needs at startup. Credentials
// may be absent; catalog calls then fail with a per-call configuration
// error instead of crashing the process.
type Settings struct {
	APIKey       string `json:"apiKey"`
	APIHost      string `json:"apiHost"`
	ListenAddr   string `json:"listenAddr"`
	DatabasePath string `json:"databasePath"`
	PrefsPath    string `json:"prefsPath"`
	LogPath      string `json:"logPath"`
}

// Manager loads settings from an optional JSON file with environment
// variable overrides.
type Manager struct {
	path string

	mu     sync.Mutex
	cached *Settings
}

// NewManager creates a manager for the given settings file path. An empty
// path skips the file and uses defaults plus environment overrides.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the current settings, reading the file at most once.
func (m *Manager) Load() (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached, nil
	}

	settings := &Settings{
		ListenAddr:   ":8484",
		DatabasePath: "data/watchvault.db",
		PrefsPath:    "data/prefs.json",
	}

	if m.path != "" {
		data, err := os.ReadFile(m.path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("parse settings file: %w", err)
			}
		}
	}

	applyEnvOverrides(settings)

	m.cached = settings
	return settings, nil
}

func applyEnvOverrides(s *Settings) {
	overrides := map[string]*string{
		"WATCHVAULT_API_KEY":     &s.APIKey,
		"WATCHVAULT_API_HOST":    &s.APIHost,
		"WATCHVAULT_LISTEN_ADDR": &s.ListenAddr,
		"WATCHVAULT_DB_PATH":     &s.DatabasePath,
		"WATCHVAULT_PREFS_PATH":  &s.PrefsPath,
		"WATCHVAULT_LOG_PATH":    &s.LogPath,
	}
	for key, target := range overrides {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}
}
