package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCollapsingLoggerEmitsOnPowersOfTwo(t *testing.T) {
	rec := NewRecorder()
	log := NewCollapsingLogger(rec)

	for i := 0; i < 9; i++ {
		log.Debug("Something updated but no changes found!")
	}

	want := []string{
		"Something updated but no changes found!",
		"Something updated but no changes found! (x 2)",
		"Something updated but no changes found! (x 4)",
		"Something updated but no changes found! (x 8)",
	}
	if diff := cmp.Diff(want, rec.Messages(LevelDebug)); diff != "" {
		t.Errorf("debug messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCollapsingLoggerResetsOnDifferentMessage(t *testing.T) {
	rec := NewRecorder()
	log := NewCollapsingLogger(rec)

	log.Debug("a")
	log.Debug("a")
	log.Debug("b")
	log.Debug("a")

	want := []string{"a", "a (x 2)", "b", "a"}
	if diff := cmp.Diff(want, rec.Messages(LevelDebug)); diff != "" {
		t.Errorf("debug messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCollapsingLoggerPassesOtherChannels(t *testing.T) {
	rec := NewRecorder()
	log := NewCollapsingLogger(rec)

	for i := 0; i < 3; i++ {
		log.Info("info")
		log.Warn("warn")
		log.Error("error")
	}

	for _, level := range []Level{LevelInfo, LevelWarn, LevelError} {
		if got := len(rec.Messages(level)); got != 3 {
			t.Errorf("%s: expected 3 messages, got %d", level, got)
		}
	}
}

func TestWriterLoggerRespectsLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelInfo).WithFields(F("component", "tracker"))

	log.Debug("hidden")
	log.Info("shown", F("world", "Random Speedrun #4"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered, got %q", out)
	}
	if !strings.Contains(out, "INFO: shown component=tracker world=Random Speedrun #4") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
