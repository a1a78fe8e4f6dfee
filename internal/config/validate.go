package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks a config for errors.
func Validate(cfg *Config) ValidationErrors {
	var errs ValidationErrors

	durations := []struct {
		field    string
		value    string
		positive bool
	}{
		{"interval", cfg.Interval, true},
		{"stop_grace", cfg.StopGrace, false},
		{"http_timeout", cfg.HTTPTimeout, false},
	}
	for _, d := range durations {
		if d.value == "" || d.value == "0" && !d.positive {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("invalid duration %q", d.value)})
			continue
		}
		if parsed < 0 || d.positive && parsed == 0 {
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("duration %q out of range", d.value)})
		}
	}

	endpoints := map[string]string{
		"endpoints.send": cfg.Endpoints.Send,
		"endpoints.kill": cfg.Endpoints.Kill,
		"endpoints.test": cfg.Endpoints.Test,
	}
	for _, field := range []string{"endpoints.send", "endpoints.kill", "endpoints.test"} {
		raw := endpoints[field]
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL %q", raw)})
		}
	}

	if cfg.LatestWorldPath == "" {
		errs = append(errs, ValidationError{Field: "latest_world_path", Message: "path is required"})
	}
	if cfg.OptionsPath == "" {
		errs = append(errs, ValidationError{Field: "options_path", Message: "path is required"})
	}

	if cfg.Host != HostStandalone && cfg.Host != HostEmbedded {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: fmt.Sprintf("unknown host %q, known hosts: %s, %s", cfg.Host, HostStandalone, HostEmbedded),
		})
	}

	return errs
}
