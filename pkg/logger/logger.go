package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Leveled logger shared by all services. Zero external deps; the level is
// set once at startup via Init and read atomically on every call.

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	current atomic.Int32
	out     = log.New(os.Stdout, "", 0)
)

func init() {
	current.Store(int32(LevelInfo))
}

// ParseLevel maps a level name to a Level. Unknown names map to Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Init sets the global log level. Call early during startup.
func Init(level string) {
	current.Store(int32(ParseLevel(level)))
}

// LevelString returns the current level as text.
func LevelString() string {
	switch Level(current.Load()) {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "info"
	}
}

func logf(l Level, tag, format string, v ...interface{}) {
	if l < Level(current.Load()) {
		return
	}
	prefix := fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), tag)
	out.Printf(prefix+format, v...)
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, "DEBUG", format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, "INFO", format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, "WARN", format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, "ERROR", format, v...) }

// Fatalf logs at fatal level and exits the process.
func Fatalf(format string, v ...interface{}) {
	logf(LevelFatal, "FATAL", format, v...)
	os.Exit(1)
}
