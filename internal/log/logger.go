package log

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"modelserve/internal/core"
)

// LogLevel defines the severity level for log messages.
type LogLevel int

// Log level constants.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelPrefixes = map[LogLevel]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO] ",
	WARN:  "[WARN] ",
	ERROR: "[ERROR] ",
	FATAL: "[FATAL] ",
}

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *log.Logger
	minLevel   LogLevel
	fileHandle *os.File
	mu         sync.RWMutex
}

// NewAppLoggerWithConfig creates a logger instance with configuration.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	return &AppLogger{
		logger:   log.New(output, "", log.LstdFlags),
		minLevel: levelFor(debugMode),
	}
}

func levelFor(debugMode bool) LogLevel {
	if debugMode {
		return DEBUG
	}
	return INFO
}

// Debugging reports whether debug messages are emitted.
func (l *AppLogger) Debugging() bool {
	return l != nil && l.minLevel <= DEBUG
}

func (l *AppLogger) logf(level LogLevel, format string, args ...any) {
	if l == nil || level < l.minLevel {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Printf(levelPrefixes[level]+format, args...)
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) { l.logf(DEBUG, format, args...) }

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) { l.logf(INFO, format, args...) }

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) { l.logf(WARN, format, args...) }

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) { l.logf(ERROR, format, args...) }

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.logger.Fatalf(levelPrefixes[FATAL]+format, args...)
		return
	}
	log.Fatalf(levelPrefixes[FATAL]+format, args...)
}

// Close safely closes log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		l.logger.SetOutput(os.Stdout)
		return err
	}
	return nil
}

// containsPathTraversal reports whether path climbs out of its directory.
func containsPathTraversal(path string) bool {
	return strings.Contains(path, "..")
}

// createDebugFileOutput creates debug file output, falls back gracefully on failure.
func createDebugFileOutput() (io.Writer, *os.File) {
	debugFile := os.Getenv(core.EnvDebugFile)
	if debugFile == "" {
		return os.Stdout, nil
	}

	if len(debugFile) > core.MaxDebugFilePathLength {
		log.Printf("[WARN] %s path too long, falling back to stdout", core.EnvDebugFile)
		return os.Stdout, nil
	}

	if containsPathTraversal(debugFile) {
		log.Printf("[WARN] %s contains path traversal characters, falling back to stdout", core.EnvDebugFile)
		return os.Stdout, nil
	}

	//nolint:gosec // G304: debugFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		log.Printf("[WARN] Failed to open %s '%s': %v, falling back to stdout", core.EnvDebugFile, debugFile, err)
		return os.Stdout, nil
	}

	return file, file
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv(core.EnvGinMode) == "debug"
}

// CreateLogger creates a logger instance (for dependency injection).
func CreateLogger() *AppLogger {
	output, fileHandle := createDebugFileOutput()

	return &AppLogger{
		logger:     log.New(output, "", log.LstdFlags),
		minLevel:   levelFor(IsDebug()),
		fileHandle: fileHandle,
	}
}
