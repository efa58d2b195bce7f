// Package logger wraps logrus with a namespaced, key/value logging API.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger handles structured, leveled logging for a single namespace.
type Logger struct {
	base   *logrus.Logger
	fields logrus.Fields
}

// New returns a new Logger instance which writes to stderr using the default config.
//
// After the first argument, arguments are key-value pairs which are added to
// every message written by the logger.
func New(ns string, args ...interface{}) *Logger {
	l := &Logger{
		base:   logrus.New(),
		fields: fields(args...),
	}
	l.fields["ns"] = ns
	l.Configure(DefaultConfig())
	return l
}

// NewLogger returns a new Logger instance configured with the given config.
func NewLogger(ns string, conf Config) *Logger {
	l := New(ns)
	l.Configure(conf)
	return l
}

// Configure configures the logging level, format and output path.
func (l *Logger) Configure(conf Config) {
	l.SetLevel(conf.Level)

	switch strings.ToLower(conf.Formatter) {
	case "json":
		l.SetFormatter(&jsonFormatter{conf: conf.JSONFormat})

	// Default to text
	default:
		l.SetFormatter(&textFormatter{
			TextFormatConfig: conf.TextFormat,
			json:             jsonFormatter{conf: conf.JSONFormat},
		})
	}

	if conf.OutputFile != "" {
		logFile, err := os.OpenFile(
			conf.OutputFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666,
		)
		if err != nil {
			l.Error("Can't open log output file", "path", conf.OutputFile, "error", err)
		} else {
			l.SetOutput(logFile)
		}
	}
}

// SetLevel sets the level of logging. Unknown levels default to "info".
func (l *Logger) SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		l.base.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.base.SetLevel(logrus.WarnLevel)
	case "error":
		l.base.SetLevel(logrus.ErrorLevel)
	default:
		l.base.SetLevel(logrus.InfoLevel)
	}
}

// SetFormatter sets the formatter of the logger.
func (l *Logger) SetFormatter(f logrus.Formatter) {
	l.base.Formatter = f
}

// SetOutput sets the output of the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.Out = w
}

// Discard configures the logger to discard all logs.
func (l *Logger) Discard() {
	l.SetOutput(io.Discard)
}

// Debug logs a debug message.
//
// After the first argument, arguments are key-value pairs which are written as structured logs.
//
//	log.Debug("Some message here", "key1", value1, "key2", value2)
func (l *Logger) Debug(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Debug(msg)
}

// Info logs an info message.
//
//	log.Info("Some message here", "key1", value1, "key2", value2)
func (l *Logger) Info(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Warn(msg)
}

// Error logs an error message
//
// Error has a two-argument version that can be used as a shortcut.
//
//	err := startServer()
//	log.Error("Couldn't start server", err)
func (l *Logger) Error(msg string, args ...interface{}) {
	defer recoverLogErr()
	if len(args) == 1 {
		args = []interface{}{"error", args[0]}
	}
	l.entry(args...).Error(msg)
}

// WithFields returns a new Logger instance with the given fields added to all log messages.
// The new logger shares its output, level and formatter with its parent.
func (l *Logger) WithFields(args ...interface{}) *Logger {
	defer recoverLogErr()
	f := make(logrus.Fields, len(l.fields))
	for k, v := range l.fields {
		f[k] = v
	}
	for k, v := range fields(args...) {
		f[k] = v
	}
	return &Logger{base: l.base, fields: f}
}

// NewSubLogger returns a child logger with a different namespace.
func (l *Logger) NewSubLogger(ns string, args ...interface{}) *Logger {
	sub := l.WithFields(args...)
	sub.fields["ns"] = ns
	return sub
}

func (l *Logger) entry(args ...interface{}) *logrus.Entry {
	return l.base.WithFields(l.fields).WithFields(fields(args...))
}

// recoverLogErr is used to recover from any panics during logging.
// Panics aren't expected of course, but logging should never crash
// a program, so this failsafe tries to prevent those crashes.
func recoverLogErr() {
	if r := recover(); r != nil {
		fmt.Println("Recovered from logging panic", r)
	}
}

// PrintSimpleError prints out an error message with a red "ERROR:" prefix.
func PrintSimpleError(err error) {
	fmt.Fprintf(os.Stderr, "\x1b[%dm%s\x1b[0m %s\n", 31, "ERROR:", err.Error())
}

func fields(args ...interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			f["error"] = err.Error()
		} else {
			f["unknown"] = args[0]
		}
		return f
	}
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			k = fmt.Sprint(args[i])
		}
		v := args[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		f[k] = v
	}
	if len(args)%2 != 0 {
		f["unknown"] = args[len(args)-1]
	}
	return f
}
