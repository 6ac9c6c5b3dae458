// Package logs provides the leveled logger used across the node.
package logs

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is the logging surface components accept.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Level orders messages by severity.
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
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Std writes through one log.Logger per level.
type Std struct {
	level Level
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

const flags = log.Ldate | log.Ltime | log.Lmicroseconds

// New returns a logger writing messages at or above level to w.
func New(w io.Writer, level Level) *Std {
	return &Std{
		level: level,
		debug: log.New(w, "[DEBUG] ", flags),
		info:  log.New(w, "[INFO]  ", flags),
		warn:  log.New(w, "[WARN]  ", flags),
		err:   log.New(w, "[ERROR] ", flags),
	}
}

// Default logs info and above to stderr.
func Default() *Std {
	return New(os.Stderr, LevelInfo)
}

func (l *Std) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.debug.Printf(format, args...)
	}
}

func (l *Std) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.info.Printf(format, args...)
	}
}

func (l *Std) Warn(format string, args ...any) {
	if l.level <= LevelWarn {
		l.warn.Printf(format, args...)
	}
}

func (l *Std) Error(format string, args ...any) {
	l.err.Printf(format, args...)
}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}

// Nop discards everything.
var Nop Logger = nop{}
