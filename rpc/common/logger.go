package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

// propLogger implements the ILogger interface with custom formatting
type propLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *propLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *propLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *propLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *propLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *propLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *propLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *propLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the logger.Factory interface
func CreateLogger(pkgName string) logger.ILogger {
	// Log to stderr, stdout carries command output
	stdLogger := log.New(os.Stderr, "", log.Ldate|log.Ltime)

	return &propLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to logger.LogLevel
func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames lists every package logger of the project.
var loggerNames = []string{
	"area",
	"contexts",
	"sysprop",
	"persist",
	"lockmgr",
	"rpc",
	"transport/rpc",
}

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and sets the level of all
// package loggers. An empty level keeps the default (info).
func InitLoggers(level string) {
	// Set as the global logger factory
	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	if level == "" {
		level = "info"
	}
	l := parseLogLevel(level)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(l)
	}
}

// ValidLogLevel reports whether level is accepted by InitLoggers.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warning", "warn", "error":
		return true
	default:
		return false
	}
}
