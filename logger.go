package mailnotify

import (
	"fmt"
	"io"
	"os"
)

// Logger defines the interface for logging operations
type Logger interface {
	// Errorf logs an error message with formatting
	Errorf(format string, args ...interface{})
	// Infof logs an informational message with formatting
	Infof(format string, args ...interface{})
	// Debugf logs a debug message with formatting
	Debugf(format string, args ...interface{})
}

// StdLogger is a simple logger that writes to an io.Writer
type StdLogger struct {
	writer io.Writer
	debug  bool
}

// Errorf implements Logger.Errorf by writing a formatted error message to the writer
func (l *StdLogger) Errorf(format string, args ...interface{}) {
	l.write("ERROR", format, args...)
}

// Infof implements Logger.Infof
func (l *StdLogger) Infof(format string, args ...interface{}) {
	l.write("INFO", format, args...)
}

// Debugf implements Logger.Debugf, it only writes when debug is enabled
func (l *StdLogger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write("DEBUG", format, args...)
}

func (l *StdLogger) write(level, format string, args ...interface{}) {
	if l.writer != nil {
		fmt.Fprintf(l.writer, level+" "+format+"\n", args...)
	}
}

// NewStdLogger creates a new StdLogger with the specified writer
// If writer is nil, os.Stderr is used as the default
func NewStdLogger(writer io.Writer) *StdLogger {
	if writer == nil {
		writer = os.Stderr
	}
	return &StdLogger{
		writer: writer,
	}
}

// NewDebugLogger creates a StdLogger that also writes debug messages
func NewDebugLogger(writer io.Writer) *StdLogger {
	ret := NewStdLogger(writer)
	ret.debug = true
	return ret
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Errorf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Debugf(string, ...interface{}) {}

// DefaultLogger is the default logger instance that writes to os.Stderr
var DefaultLogger Logger = NewStdLogger(os.Stderr)
