// Package logger is the level-filtered logging facade used throughout the songplays pipeline.
// Messages are written through the standard `log` package with a level tag prefix.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is the severity of a log message. Smaller values are more verbose.
type LogLevel int32

const (
	// LevelDebug enables step internals such as per-object reads and uploads.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level: step boundaries and table summaries.
	LevelInfo
	// LevelWarn reports recoverable oddities in input or configuration.
	LevelWarn
	// LevelError reports failures that abort a step.
	LevelError
	// LevelFatal is reserved for messages that terminate the process.
	LevelFatal
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLevel converts a level name to a LogLevel. Matching is case-insensitive.
// The second return value is false when the name is not a known level.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global level. Unknown names fall back to INFO with a notice on stdout.
func SetLogLevel(level string) {
	lvl, ok := ParseLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	logLevel.Store(int32(lvl))
}

// GetLogLevel returns the current global level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof logs at INFO level.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf logs at WARN level.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf logs at ERROR level.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf logs at FATAL level and exits the process with status 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
