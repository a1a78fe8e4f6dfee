package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/pacemangg/aatracker/internal/logger"
)

// ErrNoEvents is returned when a run id is requested before any event was logged.
var ErrNoEvents = errors.New("cannot fingerprint a run without events")

// Fingerprint derives the stable run id from the absolute world path and the first
// event line. A well formed first line has three space separated parts; other
// shapes are tolerated with a warning.
func Fingerprint(worldPath string, events []string, log logger.Logger) (string, error) {
	if len(events) == 0 {
		return "", ErrNoEvents
	}

	first := events[0]
	parts := strings.Split(first, " ")
	var uniquifier []string
	switch len(parts) {
	case 3:
		uniquifier = parts
	case 2:
		log.Warn("Event log contained only 2 parts for an event line!", logger.F("line", first))
		uniquifier = parts
	default:
		log.Warn("Event log contained a strange number of parts for an event line!", logger.F("line", first))
		uniquifier = parts[:1]
	}

	sum := sha256.Sum256([]byte(worldPath + ";" + strings.Join(uniquifier, ";")))
	return hex.EncodeToString(sum[:]), nil
}
