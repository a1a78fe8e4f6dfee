package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration files.
type Loader struct {
	home string
}

// NewLoader creates a loader whose defaults are rooted at home.
func NewLoader(home string) *Loader {
	return &Loader{home: home}
}

// DefaultPath is where the config file lives when no --config flag is given.
func (l *Loader) DefaultPath() string {
	return filepath.Join(PaceManDir(l.home), "config.yaml")
}

// LoadFile loads a configuration from a specific file path.
// ${VAR} and ${VAR:-default} references are expanded before parsing, from the
// process environment and then from a .env file next to the config.
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	data = Expand(data, Env(dotenv))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.mergeDefaults(Default(l.home))

	return &cfg, nil
}

// Load loads path, or the defaults when the file does not exist, and validates
// the result.
func (l *Loader) Load(path string) (*Config, error) {
	cfg, err := l.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default(l.home)
	} else if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); errs.HasErrors() {
		return nil, fmt.Errorf("config validation failed for %s:\n%w", path, errs)
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}
