// Package logger is the process wide logging facade. Packages log through
// the functions below; main wires one or more backends with Init.
package logger

import (
	"fmt"
	"os"
	"sync/atomic"
)

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Syncer is implemented by backends that buffer output.
type Syncer interface {
	Sync() error
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var singleton atomic.Pointer[Logger]

// Init installs the backends, replacing earlier ones. Calls made before
// Init are dropped silently, which keeps library packages quiet in tests.
func Init(instances ...LoggerInstance) {
	singleton.Store(&Logger{instances: instances})
}

func each(fn func(LoggerInstance)) {
	l := singleton.Load()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		fn(instance)
	}
}

// Log writes a message at the default log level.
func Log(message string, keyvals ...any) {
	each(func(i LoggerInstance) { i.Log(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	each(func(i LoggerInstance) { i.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	each(func(i LoggerInstance) { i.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	each(func(i LoggerInstance) { i.Error(message, keyvals...) })
}

func Debug(message string, keyvals ...any) {
	each(func(i LoggerInstance) { i.Debug(message, keyvals...) })
}

// Fatal logs at FATAL level and terminates the program. Without backends
// the message goes to stderr so the exit is never silent.
func Fatal(message string, keyvals ...any) {
	if singleton.Load() == nil {
		fmt.Fprintln(os.Stderr, append([]any{"FATAL", message}, keyvals...)...)
		os.Exit(1)
	}
	each(func(i LoggerInstance) { i.Fatal(message, keyvals...) })
	os.Exit(1)
}

// Sync flushes every backend that buffers and returns the first error.
func Sync() error {
	var first error
	each(func(i LoggerInstance) {
		if s, ok := i.(Syncer); ok {
			if err := s.Sync(); err != nil && first == nil {
				first = err
			}
		}
	})
	return first
}
