// Package logging provides a leveled log manager over the standard logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/surak-alf/addis-trans/internal/shared"
)

// LogEntry represents a log entry.
type LogEntry struct {
	Level     shared.LogLevel        `json:"level"`
	Message   string                 `json:"message"`
	Logger    string                 `json:"logger,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// LogHandler is a callback for log messages.
type LogHandler func(entry LogEntry)

// LogManager filters entries by level, keeps the most recent ones and hands
// each accepted entry to its handlers in registration order.
type LogManager struct {
	mu         sync.RWMutex
	level      shared.LogLevel
	handlers   []LogHandler
	entries    []LogEntry
	maxEntries int
}

// ParseLevel normalizes and validates a level name.
func ParseLevel(level string) (shared.LogLevel, error) {
	logLevel := shared.LogLevel(strings.ToLower(strings.TrimSpace(level)))
	switch logLevel {
	case shared.LogLevelDebug, shared.LogLevelInfo, shared.LogLevelWarning, shared.LogLevelError:
		return logLevel, nil
	case "warn":
		return shared.LogLevelWarning, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", level)
	}
}

func safeInvokeLogHandler(handler LogHandler, entry LogEntry) {
	defer func() {
		_ = recover()
	}()
	handler(entry)
}

// NewLogManager creates a new LogManager.
func NewLogManager(level shared.LogLevel, maxEntries int) *LogManager {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &LogManager{
		level:      level,
		handlers:   make([]LogHandler, 0),
		entries:    make([]LogEntry, 0),
		maxEntries: maxEntries,
	}
}

// NewLogManagerWithDefaults creates an info-level LogManager that writes to
// the standard logger.
func NewLogManagerWithDefaults() *LogManager {
	lm := NewLogManager(shared.LogLevelInfo, 1000)
	lm.AddHandler(WriterHandler(log.Default()))
	return lm
}

// WriterHandler formats entries onto a standard logger.
func WriterHandler(logger *log.Logger) LogHandler {
	return func(entry LogEntry) {
		logger.Print(FormatEntry(entry))
	}
}

// NewWriterHandler formats entries onto w with the standard log flags.
func NewWriterHandler(w io.Writer) LogHandler {
	return WriterHandler(log.New(w, "", log.LstdFlags))
}

// FormatEntry renders an entry as "[LEVEL] logger: message key=value ...".
func FormatEntry(entry LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", strings.ToUpper(string(entry.Level)))
	if entry.Logger != "" {
		b.WriteString(entry.Logger)
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	return b.String()
}

// SetLevel sets the log level.
func (lm *LogManager) SetLevel(level string) error {
	if lm == nil {
		return fmt.Errorf("log manager is required")
	}

	logLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	lm.mu.Lock()
	lm.level = logLevel
	lm.mu.Unlock()

	return nil
}

// GetLevel returns the current log level.
func (lm *LogManager) GetLevel() shared.LogLevel {
	if lm == nil {
		return shared.LogLevelInfo
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.level
}

// AddHandler adds a log handler.
func (lm *LogManager) AddHandler(handler LogHandler) {
	if lm == nil || handler == nil {
		return
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.handlers = append(lm.handlers, handler)
}

// Log logs a message at the specified level.
func (lm *LogManager) Log(level shared.LogLevel, message string, data map[string]interface{}) {
	lm.LogWithLogger(level, "", message, data)
}

// LogWithLogger logs a message with a specific logger name.
func (lm *LogManager) LogWithLogger(level shared.LogLevel, logger, message string, data map[string]interface{}) {
	if lm == nil {
		return
	}

	if !lm.shouldLog(level) {
		return
	}

	entry := LogEntry{
		Level:     level,
		Message:   message,
		Logger:    logger,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	lm.mu.Lock()
	lm.entries = append(lm.entries, entry)
	if len(lm.entries) > lm.maxEntries {
		lm.entries = lm.entries[1:]
	}
	handlers := make([]LogHandler, len(lm.handlers))
	copy(handlers, lm.handlers)
	lm.mu.Unlock()

	// Handlers run inline so output stays ordered with the control loop.
	for _, handler := range handlers {
		safeInvokeLogHandler(handler, entry)
	}
}

// shouldLog checks if a message at the given level should be logged.
func (lm *LogManager) shouldLog(level shared.LogLevel) bool {
	lm.mu.RLock()
	currentLevel := lm.level
	lm.mu.RUnlock()

	return levelPriority(level) >= levelPriority(currentLevel)
}

// levelPriority returns the priority of a log level.
func levelPriority(level shared.LogLevel) int {
	switch level {
	case shared.LogLevelDebug:
		return 0
	case shared.LogLevelInfo:
		return 1
	case shared.LogLevelWarning:
		return 2
	case shared.LogLevelError:
		return 3
	default:
		return 1 // Default to info level
	}
}

// Convenience methods

// Debug logs a debug message.
func (lm *LogManager) Debug(message string, data map[string]interface{}) {
	lm.Log(shared.LogLevelDebug, message, data)
}

// Info logs an info message.
func (lm *LogManager) Info(message string, data map[string]interface{}) {
	lm.Log(shared.LogLevelInfo, message, data)
}

// Warning logs a warning message.
func (lm *LogManager) Warning(message string, data map[string]interface{}) {
	lm.Log(shared.LogLevelWarning, message, data)
}

// Error logs an error message.
func (lm *LogManager) Error(message string, data map[string]interface{}) {
	lm.Log(shared.LogLevelError, message, data)
}

// Named returns a logger that tags every entry with name.
func (lm *LogManager) Named(name string) *Logger {
	return &Logger{manager: lm, name: name}
}

// GetEntries returns recent log entries.
func (lm *LogManager) GetEntries(limit int) []LogEntry {
	if lm == nil {
		return []LogEntry{}
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if limit <= 0 || limit > len(lm.entries) {
		limit = len(lm.entries)
	}

	result := make([]LogEntry, limit)
	copy(result, lm.entries[len(lm.entries)-limit:])
	return result
}

// GetEntriesByLevel returns log entries filtered by level.
func (lm *LogManager) GetEntriesByLevel(level shared.LogLevel, limit int) []LogEntry {
	if lm == nil {
		return []LogEntry{}
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()

	result := make([]LogEntry, 0)
	for i := len(lm.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if lm.entries[i].Level == level {
			result = append(result, lm.entries[i])
		}
	}

	// Reverse to maintain chronological order
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return result
}

// Clear clears all log entries.
func (lm *LogManager) Clear() {
	if lm == nil {
		return
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.entries = make([]LogEntry, 0)
}

// Count returns the number of log entries.
func (lm *LogManager) Count() int {
	if lm == nil {
		return 0
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.entries)
}

// Logger is a named view of a LogManager. A nil manager discards everything.
type Logger struct {
	manager *LogManager
	name    string
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.name
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, data map[string]interface{}) {
	l.manager.LogWithLogger(shared.LogLevelDebug, l.name, message, data)
}

// Info logs an info message.
func (l *Logger) Info(message string, data map[string]interface{}) {
	l.manager.LogWithLogger(shared.LogLevelInfo, l.name, message, data)
}

// Warning logs a warning message.
func (l *Logger) Warning(message string, data map[string]interface{}) {
	l.manager.LogWithLogger(shared.LogLevelWarning, l.name, message, data)
}

// Error logs an error message.
func (l *Logger) Error(message string, data map[string]interface{}) {
	l.manager.LogWithLogger(shared.LogLevelError, l.name, message, data)
}
