// Package logger provides the named logger facility used by all cellar
// packages. Every package obtains its logger once via GetLogger and logs
// through the leveled ILogger interface; levels can be adjusted per name at
// runtime (e.g. from the --log-level flag).
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

// LogLevel controls the verbosity of a logger. Higher levels include all
// lower ones.
type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// ParseLevel converts a string level to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "critical":
		return CRITICAL, nil
	case "error":
		return ERROR, nil
	case "warning", "warn":
		return WARNING, nil
	case "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error, critical", level)
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILogger is the leveled logging interface handed out by GetLogger.
type ILogger interface {
	// SetLevel sets the verbosity of this logger.
	SetLevel(level LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

// cellarLogger implements ILogger with custom formatting
type cellarLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *cellarLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *cellarLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *cellarLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *cellarLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *cellarLogger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *cellarLogger) Panicf(format string, args ...interface{}) {
	if l.level >= CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *cellarLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

var (
	registry     = xsync.NewMapOf[string, *cellarLogger]()
	defaultLevel = INFO
)

// GetLogger returns the logger registered under name, creating it on first
// use. Repeated calls with the same name return the same logger instance.
func GetLogger(name string) ILogger {
	l, _ := registry.LoadOrCompute(name, func() *cellarLogger {
		return &cellarLogger{
			name:   name,
			level:  defaultLevel,
			logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
		}
	})
	return l
}

// InitLoggers sets the level for all existing loggers and for loggers
// created afterwards. Called once from the CLI after flags are parsed.
func InitLoggers(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	defaultLevel = parsed
	registry.Range(func(_ string, l *cellarLogger) bool {
		l.SetLevel(parsed)
		return true
	})

	return nil
}
