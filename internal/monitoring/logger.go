// Package monitoring holds the pluggable diagnostic loggers shared by the
// trace layers, the store and the CLI.
package monitoring

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "[laptrace] ", log.LstdFlags)

// Logf is the package-level diagnostic logger. It defaults to a standard
// library logger prefixed with "[laptrace]" and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = std.Printf

// Debugf receives per-step detail (outlier exclusions, dropped channels).
// It is muted by default; the CLI enables it with --verbose.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the debug logger. Passing nil mutes it again.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = f
}

// EnableDebug routes Debugf through the default diagnostic logger.
func EnableDebug() {
	Debugf = std.Printf
}
