package logger

import (
	"strings"
	"sync"
)

// Entry is a single message captured by a Recorder.
type Entry struct {
	Level   Level
	Message string
	Fields  []Field
}

// Recorder is an in-memory Logger, used by tests to assert on emitted messages.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) record(level Level, msg string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := append(append([]Field(nil), r.fields...), fields...)
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.record(LevelDebug, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.record(LevelInfo, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.record(LevelWarn, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.record(LevelError, msg, fields) }

func (r *Recorder) WithFields(fields ...Field) Logger {
	return &Recorder{mu: r.mu, entries: r.entries, fields: append(append([]Field(nil), r.fields...), fields...)}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), (*r.entries)...)
}

// Messages returns the messages recorded at level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any message at level contains substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, m := range r.Messages(level) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
