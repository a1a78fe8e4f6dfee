// Package atum decides whether a world was generated with settings that qualify
// for tracking, by reading the Atum mod's configuration next to the saves folder.
package atum

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/pacemangg/aatracker/internal/logger"
)

// Format identifies which Atum configuration file a result refers to.
type Format string

const (
	FormatProperties Format = "properties" // config/atum/atum.properties (older Atum)
	FormatJSON       Format = "json"       // config/mcsr/atum.json (newer Atum)
)

var errMalformed = errors.New("malformed settings file")

// FileResult is the outcome of checking one settings file.
type FileResult struct {
	Format  Format
	Path    string
	Present bool
	Legal   bool
	// Problem is set when the file is present but unreadable or illegal.
	Problem string
}

// Report is the combined result for a world directory.
type Report struct {
	ConfigDir string
	Files     []FileResult
	Trackable bool
}

// ConfigDir returns the instance config directory for a world directory:
// .minecraft/saves/<world> -> .minecraft/config.
func ConfigDir(worldDir string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(filepath.Clean(worldDir))), "config")
}

// Check inspects both Atum settings formats for worldDir. It fails closed: with
// neither file present the world is not trackable, and every present file must pass.
func Check(fs afero.Fs, worldDir string) Report {
	configDir := ConfigDir(worldDir)
	report := Report{ConfigDir: configDir}

	files := []struct {
		format Format
		path   string
		check  func([]byte) (bool, error)
	}{
		{FormatProperties, filepath.Join(configDir, "atum", "atum.properties"), propertiesLegal},
		{FormatJSON, filepath.Join(configDir, "mcsr", "atum.json"), jsonLegal},
	}

	anyPresent := false
	allLegal := true
	for _, f := range files {
		res := FileResult{Format: f.format, Path: f.path}
		exists, err := afero.Exists(fs, f.path)
		if err != nil || !exists {
			report.Files = append(report.Files, res)
			continue
		}
		res.Present = true
		anyPresent = true

		data, err := afero.ReadFile(fs, f.path)
		if err != nil {
			res.Problem = fmt.Sprintf("unreadable: %v", err)
		} else if legal, err := f.check(data); err != nil {
			res.Problem = err.Error()
		} else if !legal {
			res.Problem = "illegal settings"
		} else {
			res.Legal = true
		}
		if !res.Legal {
			allLegal = false
		}
		report.Files = append(report.Files, res)
	}

	report.Trackable = anyPresent && allLegal
	return report
}

// IsTrackableWorldConfig reports whether the world at worldDir was created with
// legal Atum settings. Problems are user configuration issues and are logged as
// warnings.
func IsTrackableWorldConfig(fs afero.Fs, log logger.Logger, worldDir string) bool {
	report := Check(fs, worldDir)
	if report.Trackable {
		return true
	}

	present := false
	for _, f := range report.Files {
		if !f.Present {
			continue
		}
		present = true
		if f.Legal {
			continue
		}
		other := "newer"
		if f.Format == FormatJSON {
			other = "older"
		}
		log.Warn("Illegal or corrupted Atum settings found", logger.F("path", f.Path), logger.F("problem", f.Problem))
		log.Warn("Make sure your Atum settings are set to defaults with no set seed and above peaceful difficulty.")
		log.Warn(fmt.Sprintf("If you are using the %s Atum, you should delete this config file.", other))
	}
	if !present {
		log.Warn("You must use the Atum mod", logger.F("config_dir", report.ConfigDir))
	}
	return false
}

// propertiesLegal checks the key=value format: every generatorType must be "0"
// and no bonusChest may be "true". Lines without '=' are ignored.
func propertiesLegal(data []byte) (bool, error) {
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "generatorType":
			if value != "0" {
				return false, nil
			}
		case "bonusChest":
			if value == "true" {
				return false, nil
			}
		}
	}
	return true, nil
}

// jsonLegal checks the structured format.
func jsonLegal(data []byte) (bool, error) {
	if !gjson.ValidBytes(data) {
		return false, errMalformed
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return false, errMalformed
	}

	if root.Get("hasLegalSettings").Type != gjson.True {
		return false, nil
	}

	seed := root.Get("seed")
	if seed.Type != gjson.String || seed.Str != "" {
		return false, nil
	}

	difficulty := root.Get("difficulty")
	if !difficulty.Exists() {
		difficulty = root.Get("Difficulty")
	}
	if !difficulty.Exists() {
		return false, nil
	}
	return !strings.EqualFold(difficulty.String(), "peaceful"), nil
}
