package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pacemangg/aatracker/internal/logger"
)

// Options are the user settings the tracker reads at the top of each tick.
type Options struct {
	AccessKey        string `json:"accessKey"`
	EnabledForPlugin bool   `json:"enabledForPlugin"`
}

// SecretSource is a last-resort place to find an access key.
type SecretSource interface {
	Get(key string) (string, error)
}

// OptionsStore holds the current options. Reads are safe while the watcher reloads.
type OptionsStore struct {
	path string
	log  logger.Logger

	mu   sync.RWMutex
	opts Options
}

// MigrationCandidates are files of the sibling PaceMan tracker whose access key is
// borrowed on first start.
func MigrationCandidates(home string) []string {
	return []string{filepath.Join(home, ".PaceMan", "options.json")}
}

// NewOptionsStore returns a store holding opts that saves to path.
func NewOptionsStore(path string, opts Options, log logger.Logger) *OptionsStore {
	return &OptionsStore{path: path, opts: opts, log: log}
}

// LoadOptions reads path. When it does not exist the access key is looked up
// once, first in each migration candidate in order, then in secrets (which may be
// nil), and the result is saved to path so the lookup never runs again.
func LoadOptions(path string, candidates []string, secrets SecretSource, log logger.Logger) (*OptionsStore, error) {
	s := &OptionsStore{path: path, log: log}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &s.opts); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return s, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.opts.AccessKey = firstKey(candidates, secrets, log)
	if err := s.Save(); err != nil {
		log.Warn("Failed to save options, the key lookup will run again next start", logger.F("path", path), logger.F("error", err))
	}
	return s, nil
}

func firstKey(candidates []string, secrets SecretSource, log logger.Logger) string {
	for _, candidate := range candidates {
		if key := borrowKey(candidate); key != "" {
			log.Info("Access key taken from the regular tracker options", logger.F("path", candidate))
			return key
		}
	}
	if secrets != nil {
		if key, err := secrets.Get(KeyringAccessKey); err == nil && key != "" {
			log.Info("Access key loaded from the system keyring")
			return key
		}
	}
	return ""
}

// borrowKey returns the accessKey of another tracker's options file, or "".
func borrowKey(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var other struct {
		AccessKey string `json:"accessKey"`
	}
	if json.Unmarshal(data, &other) != nil {
		return ""
	}
	return other.AccessKey
}

// Path is the file the store saves to.
func (s *OptionsStore) Path() string { return s.path }

// Get returns a copy of the current options.
func (s *OptionsStore) Get() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Set replaces the current options without saving.
func (s *OptionsStore) Set(opts Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// Reload re-reads the options file. The previous options are kept on error.
func (s *OptionsStore) Reload() (Options, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.Get(), err
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return s.Get(), fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	s.Set(opts)
	return opts, nil
}

// Save writes the options atomically, creating the directory if needed.
func (s *OptionsStore) Save() error {
	data, err := json.MarshalIndent(s.Get(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
