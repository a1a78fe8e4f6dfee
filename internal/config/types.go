package config

import (
	"path/filepath"
	"time"
)

// Host modes decide what happens when a tick crashes.
const (
	HostStandalone = "standalone" // the process exits
	HostEmbedded   = "embedded"   // the tracker shuts down and the host is notified
)

// Config is the tracker configuration, loaded from YAML.
type Config struct {
	Interval    string `yaml:"interval,omitempty"`     // Delay between ticks (e.g., "5s")
	StopGrace   string `yaml:"stop_grace,omitempty"`   // How long Stop waits for an in-flight tick
	HTTPTimeout string `yaml:"http_timeout,omitempty"` // Per-request timeout, "0" for none

	LatestWorldPath string `yaml:"latest_world_path,omitempty"`
	OptionsPath     string `yaml:"options_path,omitempty"`
	StatusPath      string `yaml:"status_path,omitempty"`
	LockPath        string `yaml:"lock_path,omitempty"`

	Endpoints EndpointsConfig `yaml:"endpoints,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`

	MetricsAddr string `yaml:"metrics_addr,omitempty"` // e.g. "127.0.0.1:9464"; empty disables
	DryRun      bool   `yaml:"dry_run,omitempty"`      // Build payloads but never send
	Host        string `yaml:"host,omitempty"`
}

// EndpointsConfig overrides the PaceMan API URLs.
type EndpointsConfig struct {
	Send string `yaml:"send,omitempty"`
	Kill string `yaml:"kill,omitempty"`
	Test string `yaml:"test,omitempty"`
}

// LogConfig controls the logging sink.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// PaceManDir is ~/.PaceMan/AA.
func PaceManDir(home string) string {
	return filepath.Join(home, ".PaceMan", "AA")
}

// Default returns the configuration used when no config file exists.
func Default(home string) *Config {
	dir := PaceManDir(home)
	return &Config{
		Interval:        "5s",
		StopGrace:       "10s",
		HTTPTimeout:     "0",
		LatestWorldPath: filepath.Join(home, "speedrunigt", "latest_world.json"),
		OptionsPath:     filepath.Join(dir, "options.json"),
		StatusPath:      filepath.Join(dir, "status.json"),
		LockPath:        filepath.Join(dir, "LOCK"),
		Endpoints: EndpointsConfig{
			Send: "https://paceman.gg/api/aa/send",
			Kill: "https://paceman.gg/api/aa/kill",
			Test: "https://paceman.gg/api/test",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "logs", "aatracker.log"),
		},
		Host: HostStandalone,
	}
}

// mergeDefaults fills every empty field of c from d.
func (c *Config) mergeDefaults(d *Config) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.Interval, d.Interval)
	fill(&c.StopGrace, d.StopGrace)
	fill(&c.HTTPTimeout, d.HTTPTimeout)
	fill(&c.LatestWorldPath, d.LatestWorldPath)
	fill(&c.OptionsPath, d.OptionsPath)
	fill(&c.StatusPath, d.StatusPath)
	fill(&c.LockPath, d.LockPath)
	fill(&c.Endpoints.Send, d.Endpoints.Send)
	fill(&c.Endpoints.Kill, d.Endpoints.Kill)
	fill(&c.Endpoints.Test, d.Endpoints.Test)
	fill(&c.Log.Level, d.Log.Level)
	fill(&c.Log.File, d.Log.File)
	fill(&c.Host, d.Host)
}

// GetInterval parses the tick delay, defaulting to 5 seconds.
func (c *Config) GetInterval() time.Duration {
	return parseDuration(c.Interval, 5*time.Second)
}

// GetStopGrace parses the stop grace period, defaulting to 10 seconds.
func (c *Config) GetStopGrace() time.Duration {
	return parseDuration(c.StopGrace, 10*time.Second)
}

// GetHTTPTimeout parses the request timeout. Zero, the default, means no
// client-side timeout: a hung send stalls later ticks instead of ending the run.
func (c *Config) GetHTTPTimeout() time.Duration {
	return parseDuration(c.HTTPTimeout, 0)
}

// IsEmbedded reports whether the tracker runs inside a host application.
func (c *Config) IsEmbedded() bool {
	return c.Host == HostEmbedded
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
