// Package logging provides leveled key/value diagnostics for cmdpilot.
//
// Diagnostics go to stderr so they never interleave with the round-by-round
// console output on stdout. The package-level logger starts at warn level;
// the --log-level flag lowers it with SetLevel(ParseLevel(...)).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for per-round tracing.
	LevelDebug Level = iota
	// LevelInfo is for guard hits and run outcomes.
	LevelInfo
	// LevelWarn is for recoverable failures such as a failed model call.
	LevelWarn
	// LevelError is for failures that end the run.
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
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel maps a level name (debug, info, warn/warning, error) to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning", "":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelWarn, fmt.Errorf("unknown log level %q", name)
	}
}

type field struct {
	key   string
	value any
}

// Logger writes leveled messages with attached context fields. Child
// loggers made by With share the parent's level and output.
type Logger struct {
	shared *sink
	fields []field
}

type sink struct {
	mu       sync.RWMutex
	minLevel Level
	output   *log.Logger
}

var defaultLogger = New()

// New creates a Logger at warn level writing to stderr.
func New() *Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a Logger at warn level writing to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{
		shared: &sink{
			minLevel: LevelWarn,
			output:   log.New(w, "", log.LstdFlags),
		},
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	l := NewWithWriter(io.Discard)
	l.SetLevel(LevelError + 1)
	return l
}

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum level for this logger and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	l.shared.minLevel = level
}

// SetOutput replaces the destination.
func (l *Logger) SetOutput(output *log.Logger) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	l.shared.output = output
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	l.shared.mu.RLock()
	defer l.shared.mu.RUnlock()
	return level >= l.shared.minLevel
}

// With returns a child Logger carrying an extra context field.
func (l *Logger) With(key string, value any) *Logger {
	return l.derive([]field{{key: key, value: value}})
}

// WithFields returns a child Logger carrying several context fields, added
// in key order.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	extra := make([]field, 0, len(keys))
	for _, k := range keys {
		extra = append(extra, field{key: k, value: fields[k]})
	}
	return l.derive(extra)
}

func (l *Logger) derive(extra []field) *Logger {
	fields := make([]field, 0, len(l.fields)+len(extra))
	fields = append(fields, l.fields...)
	for _, f := range extra {
		fields = setField(fields, f)
	}
	return &Logger{shared: l.shared, fields: fields}
}

// setField replaces an existing key in place or appends a new one.
func setField(fields []field, f field) []field {
	for i := range fields {
		if fields[i].key == f.key {
			fields[i] = f
			return fields
		}
	}
	return append(fields, f)
}

func (l *Logger) log(level Level, msg string, keyVals ...any) {
	l.shared.mu.RLock()
	minLevel := l.shared.minLevel
	output := l.shared.output
	l.shared.mu.RUnlock()

	if level < minLevel {
		return
	}

	all := make([]field, 0, len(l.fields)+len(keyVals)/2)
	all = append(all, l.fields...)
	for i := 0; i+1 < len(keyVals); i += 2 {
		if key, ok := keyVals[i].(string); ok {
			all = setField(all, field{key: key, value: keyVals[i+1]})
		}
	}

	var sb strings.Builder
	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)
	if len(all) > 0 {
		sb.WriteString(" |")
		for _, f := range all {
			sb.WriteString(" ")
			sb.WriteString(f.key)
			sb.WriteString("=")
			sb.WriteString(formatValue(f.value))
		}
	}

	output.Print(sb.String())
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" || strings.ContainsAny(val, " \t\n\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case error:
		return fmt.Sprintf("%q", val.Error())
	case fmt.Stringer:
		return formatValue(val.String())
	default:
		return fmt.Sprint(v)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyVals ...any) {
	l.log(LevelDebug, msg, keyVals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyVals ...any) {
	l.log(LevelInfo, msg, keyVals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyVals ...any) {
	l.log(LevelWarn, msg, keyVals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyVals ...any) {
	l.log(LevelError, msg, keyVals...)
}

// Package-level functions that use the default logger.

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// SetOutput sets the output for the default logger.
func SetOutput(output *log.Logger) {
	defaultLogger.SetOutput(output)
}

// With returns a child of the default logger.
func With(key string, value any) *Logger {
	return defaultLogger.With(key, value)
}

// WithFields returns a child of the default logger.
func WithFields(fields map[string]any) *Logger {
	return defaultLogger.WithFields(fields)
}

func Debug(msg string, keyVals ...any) {
	defaultLogger.Debug(msg, keyVals...)
}

func Info(msg string, keyVals ...any) {
	defaultLogger.Info(msg, keyVals...)
}

func Warn(msg string, keyVals ...any) {
	defaultLogger.Warn(msg, keyVals...)
}

func Error(msg string, keyVals ...any) {
	defaultLogger.Error(msg, keyVals...)
}
