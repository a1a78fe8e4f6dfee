package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string ("debug", "info", "warn", "error") to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for all logger implementations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// baseLogger provides common formatting logic.
type baseLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
}

func newBase(w io.Writer, level Level) baseLogger {
	return baseLogger{writer: w, level: level, mu: &sync.Mutex{}}
}

func (b *baseLogger) log(level Level, msg string, fields ...Field) {
	if level < b.level {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(b.writer, "[%s] %s: %s%s\n", timestamp, level.String(), msg, formatFields(b.fields, fields))
}

func (b *baseLogger) with(fields []Field) baseLogger {
	merged := make([]Field, 0, len(b.fields)+len(fields))
	merged = append(merged, b.fields...)
	merged = append(merged, fields...)
	return baseLogger{writer: b.writer, level: b.level, fields: merged, mu: b.mu}
}

func formatFields(groups ...[]Field) string {
	var sb strings.Builder
	for _, fields := range groups {
		for _, f := range fields {
			fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
		}
	}
	return sb.String()
}

// WriterLogger logs to an io.Writer.
type WriterLogger struct {
	baseLogger
}

// NewWriterLogger creates a logger that writes to an arbitrary writer.
func NewWriterLogger(w io.Writer, level Level) *WriterLogger {
	return &WriterLogger{baseLogger: newBase(w, level)}
}

func (l *WriterLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *WriterLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *WriterLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *WriterLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *WriterLogger) WithFields(fields ...Field) Logger {
	return &WriterLogger{baseLogger: l.with(fields)}
}

// FileLogger logs to a size-rotated file.
type FileLogger struct {
	baseLogger
	file *lumberjack.Logger
}

// NewFileLogger creates a logger that writes to path, rotating at 10 MB and keeping
// three old files.
func NewFileLogger(path string, level Level) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}

	return &FileLogger{
		baseLogger: newBase(file, level),
		file:       file,
	}, nil
}

func (l *FileLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *FileLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *FileLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *FileLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *FileLogger) WithFields(fields ...Field) Logger {
	return &FileLogger{baseLogger: l.with(fields), file: l.file}
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	return l.file.Close()
}

// MultiLogger composes multiple loggers together.
type MultiLogger struct {
	loggers []Logger
	fields  []Field
}

// NewMultiLogger creates a logger that writes to multiple destinations.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) all(fields []Field) []Field {
	return append(append([]Field(nil), m.fields...), fields...)
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	allFields := m.all(fields)
	for _, l := range m.loggers {
		l.Debug(msg, allFields...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	allFields := m.all(fields)
	for _, l := range m.loggers {
		l.Info(msg, allFields...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	allFields := m.all(fields)
	for _, l := range m.loggers {
		l.Warn(msg, allFields...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	allFields := m.all(fields)
	for _, l := range m.loggers {
		l.Error(msg, allFields...)
	}
}

func (m *MultiLogger) WithFields(fields ...Field) Logger {
	newLoggers := make([]Logger, len(m.loggers))
	copy(newLoggers, m.loggers)
	return &MultiLogger{
		loggers: newLoggers,
		fields:  m.all(fields),
	}
}

// NoopLogger discards everything.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}

func (n NoopLogger) WithFields(...Field) Logger { return n }
