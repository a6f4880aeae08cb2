package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MEDIASTREAM_"

	DefaultPath = "config/settings.json"
)

// Manager loads settings from an optional JSON file and the environment.
type Manager struct {
	path string
	mu   sync.RWMutex
	// lookup is os.LookupEnv outside tests.
	lookup func(string) (string, bool)
}

// NewManager returns a manager reading path. An empty path uses
// MEDIASTREAM_CONFIG, then DefaultPath.
func NewManager(path string) *Manager {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	return &Manager{path: path, lookup: os.LookupEnv}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Load builds settings from defaults, the settings file if it exists, and
// MEDIASTREAM_* overrides, in that order. The result is validated.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings := DefaultSettings()

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings %s: %w", m.path, err)
	default:
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", m.path, err)
		}
	}

	if err := m.applyEnv(&settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &settings, nil
}

// Save writes settings as indented JSON.
func (m *Manager) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func (m *Manager) applyEnv(s *Settings) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := m.lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := m.lookup(EnvPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
	num64 := func(key string, dst *int64) {
		v, ok := m.lookup(EnvPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := m.lookup(EnvPrefix + key)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = b
	}

	str("HOST", &s.Server.Host)
	num("PORT", &s.Server.Port)
	flag("H2C", &s.Server.EnableH2C)
	num("SHUTDOWN_TIMEOUT_SECONDS", &s.Server.ShutdownTimeoutSeconds)

	str("MEDIA_ROOT", &s.Media.Root)
	str("DEFAULT_MEDIA", &s.Media.DefaultMedia)
	str("CONTENT_TYPE", &s.Media.ContentType)
	flag("CONTENT_DISPOSITION", &s.Media.ContentDisposition)
	num("OPEN_ATTEMPTS", &s.Media.OpenAttempts)
	num("OPEN_RETRY_DELAY_MS", &s.Media.OpenRetryDelayMs)

	num("CHUNK_SIZE", &s.Streaming.ChunkSize)
	num64("MAX_BYTES_PER_SECOND", &s.Streaming.MaxBytesPerSecond)

	str("LOG_LEVEL", &s.Log.Level)
	str("LOG_FORMAT", &s.Log.Format)
	str("LOG_FILE", &s.Log.File)

	return errors.Join(errs...)
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}
