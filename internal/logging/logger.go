// Package logging provides structured logging for tgvault.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// global logger instance
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. The level string is one of
// debug, info, warn, error; unknown values fall back to info.
func Init(out io.Writer, level string) {
	once.Do(func() {
		global = newLogger(out, level)
	})
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Get returns the global logger instance.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stderr, "info")
	}
	return global
}

// Debug logs a debug message with optional context fields.
func Debug(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Debug(message)
}

// Info logs an info message with optional context fields.
func Info(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Info(message)
}

// Warn logs a warning message with optional context fields.
func Warn(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Warn(message)
}

// Error logs an error message with optional context fields.
func Error(message string, err error, context map[string]interface{}) {
	entry := Get().WithFields(logrus.Fields(context))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}
