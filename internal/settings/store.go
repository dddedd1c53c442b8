package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/pkg/config"
)

// DefaultFile is the override file location relative to the user home.
const DefaultFile = ".notecli/config.yml"

// Store reads and writes the user override file.
type Store struct {
	path string
	home string
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHome sets the directory used to expand ~.
func WithHome(home string) StoreOption {
	return func(s *Store) { s.home = home }
}

// WithClock sets the time source used for last_updated.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store for the override file at path. An empty path
// selects ~/.notecli/config.yml.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.home == "" {
		s.home, _ = os.UserHomeDir()
	}
	if s.path == "" {
		s.path = filepath.Join(s.home, DefaultFile)
	}
	s.path = expandHome(s.path, s.home)
	return s
}

// Path returns the override file location.
func (s *Store) Path() string { return s.path }

// LoadSettings returns the defaults merged with the override file. A missing
// file is not an error.
func (s *Store) LoadSettings() (Settings, error) {
	st := Defaults()
	if _, err := config.LoadOptional(s.path, &st); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return Settings{}, apperr.IO("read", s.path, err)
		}
		return Settings{}, fmt.Errorf("%w: %w", apperr.ErrConfigParse, err)
	}
	return st, nil
}

// Load returns the resolved configuration for this invocation.
func (s *Store) Load() (*Config, error) {
	st, err := s.LoadSettings()
	if err != nil {
		return nil, err
	}
	cfg, err := Resolve(st, s.home)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfigParse, err)
	}
	cfg.Reserve(s.path)
	return cfg, nil
}

// Get returns the current value of key, or nil when it is unset. Aliased keys
// report the value of their canonical key.
func (s *Store) Get(key string) (any, error) {
	if !isKnownKey(key) {
		return nil, unknownKey(key)
	}
	key = canonicalKey(key)
	st, err := s.LoadSettings()
	if err != nil {
		return nil, err
	}
	m, err := toMap(st)
	if err != nil {
		return nil, err
	}
	return m[key], nil
}

// Set changes one key and rewrites the whole override file with the merged
// settings. Unless key is last_updated, last_updated is stamped with the
// current time. value is parsed as a YAML scalar so numbers and booleans keep
// their type. Aliased keys are written under their canonical name.
func (s *Store) Set(key, value string) error {
	if !isKnownKey(key) {
		return unknownKey(key)
	}
	key = canonicalKey(key)
	st, err := s.LoadSettings()
	if err != nil {
		return err
	}
	m, err := toMap(st)
	if err != nil {
		return err
	}

	m[key] = parseScalar(value)
	if key != "last_updated" {
		m["last_updated"] = s.now().Format(TimestampLayout)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	next := Defaults()
	if err := config.Decode(s.path, data, &next); err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}

	if err := config.Save(s.path, m); err != nil {
		return apperr.IO("write", s.path, err)
	}
	return nil
}

func parseScalar(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case nil, map[string]any, []any:
		return raw
	}
	return v
}

func toMap(st Settings) (map[string]any, error) {
	data, err := yaml.Marshal(&st)
	if err != nil {
		return nil, fmt.Errorf("settings: encode: %w", err)
	}
	m := map[string]any{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("settings: decode: %w", err)
	}
	// Fold aliases into their canonical key; the canonical spelling wins.
	for alias, canon := range keyAliases {
		if v, ok := m[alias]; ok {
			if _, set := m[canon]; !set {
				m[canon] = v
			}
			delete(m, alias)
		}
	}
	return m, nil
}
