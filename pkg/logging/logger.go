package logging

import (
	"fmt"
	"log"

	"github.com/fatih/color"
)

// Logger is the engine's logger type. It has the property that it still
// functions if nil, but it doesn't log anything, so components can accept a
// *Logger and use it unconditionally without checking for a caller that
// passed nil. It uses the standard library logger under the hood, so it
// respects any flags set for that logger. It is safe for concurrent use.
type Logger struct {
	// prefix is any prefix specified for the logger.
	prefix string
}

// RootLogger is the root logger from which all other loggers derive.
var RootLogger = &Logger{}

// Sublogger creates a new sublogger with the specified name.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix}
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

// Println logs information with semantics equivalent to fmt.Println.
func (l *Logger) Println(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelInfo {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Printf logs information with semantics equivalent to fmt.Printf.
func (l *Logger) Printf(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelInfo {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debug logs information with semantics equivalent to fmt.Print, but only if
// the global level is LevelDebug or more verbose (otherwise it's a no-op).
func (l *Logger) Debug(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelDebug {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf logs information with semantics equivalent to fmt.Printf, but only
// if the global level is LevelDebug or more verbose (otherwise it's a no-op).
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelDebug {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs error information with a warning prefix and yellow color.
func (l *Logger) Warn(err error) {
	if l != nil && CurrentLevel() >= LevelWarn {
		l.output(3, color.YellowString("Warning: %v", err))
	}
}

// Error logs error information with an error prefix and red color.
func (l *Logger) Error(err error) {
	if l != nil && CurrentLevel() >= LevelError {
		l.output(3, color.RedString("Error: %v", err))
	}
}
