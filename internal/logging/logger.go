// Package logging provides structured logging for the engine.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Level represents the log level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger provides structured logging with optional file output.
type Logger struct {
	level   Level
	logger  *log.Logger
	logFile *os.File
}

// Config holds logger configuration.
type Config struct {
	Level   Level
	LogPath string
}

// New creates a console-only logger at InfoLevel.
func New() *Logger {
	return NewWithConfig(Config{Level: InfoLevel})
}

// NewWithConfig creates a logger with custom configuration. LogPath may be
// empty, in which case only stdout is used.
func NewWithConfig(config Config) *Logger {
	l := &Logger{
		level:  config.Level,
		logger: log.New(os.Stdout, "", 0),
	}

	if config.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogPath), 0755); err != nil {
			l.logger.Printf("failed to create log directory: %v", err)
		} else if f, err := os.OpenFile(config.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			l.logger.Printf("failed to open log file: %v", err)
		} else {
			l.logFile = f
		}
	}

	return l
}

// Noop returns a logger that discards everything; used where a caller
// doesn't provide one.
func Noop() *Logger {
	return &Logger{level: FatalLevel + 1, logger: log.New(os.Stdout, "", 0)}
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Debugf(format string, data map[string]interface{}, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), data)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(format string, data map[string]interface{}, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), data)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(format string, data map[string]interface{}, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), data)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(format string, data map[string]interface{}, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), data)
}

func (l *Logger) log(level Level, message string, data map[string]interface{}) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = filepath.Base(file) + ":" + fmt.Sprintf("%d", line)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] %s %s (%s)", timestamp, level.String(), message, caller)

	if len(data) > 0 {
		parts := make([]string, 0, len(data))
		for k, v := range data {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		entry += fmt.Sprintf(" {%s}", strings.Join(parts, ", "))
	}

	l.logger.Println(entry)

	if l.logFile != nil {
		l.logFile.WriteString(entry + "\n")
		l.logFile.Sync()
	}
}

// DefaultLogPath returns the platform log path: under the user's cache
// dir, or in a logs directory beside the executable on Windows, matching
// the convention the teacher launcher used.
func DefaultLogPath() string {
	if runtime.GOOS == "windows" {
		exePath, _ := os.Executable()
		return filepath.Join(filepath.Dir(exePath), "logs", "engine.log")
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "/tmp/modpack-engine.log"
	}
	return filepath.Join(cacheDir, "modpack-engine", "engine.log")
}
