// Package events reads SpeedRunIGT's per-run events.log.
package events

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/pacemangg/aatracker/internal/logger"
)

// Event type prefixes written by SpeedRunIGT.
const (
	NetherEnter  = "rsg.enter_nether"
	Multiplayer  = "common.multiplayer"
	ViewSeed     = "common.view_seed"
	EnableCheats = "common.enable_cheats"
	OldWorld     = "common.old_world"
)

// evilPrefixes mark a run as disqualified.
var evilPrefixes = []string{Multiplayer, ViewSeed, EnableCheats, OldWorld}

// Read returns the trimmed, non-empty lines of the event log at path in file
// order. A missing file yields no events; a read failure is logged and also
// yields no events.
func Read(fs afero.Fs, log logger.Logger, path string) []string {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		log.Error("Error while checking events.log", logger.F("path", path), logger.F("error", err))
		return []string{}
	}
	if !exists {
		return []string{}
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		log.Error("Error while reading events.log", logger.F("path", path), logger.F("error", err))
		return []string{}
	}

	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// HasEvil reports whether any event disqualifies the run.
func HasEvil(events []string) (string, bool) {
	for _, e := range events {
		for _, prefix := range evilPrefixes {
			if strings.HasPrefix(e, prefix) {
				return e, true
			}
		}
	}
	return "", false
}

// HasNetherEnter reports whether the runner has entered the nether.
func HasNetherEnter(events []string) bool {
	for _, e := range events {
		if strings.HasPrefix(e, NetherEnter) {
			return true
		}
	}
	return false
}
