// Package monitoring holds the package-level diagnostic logger shared by the
// simulator, the trainer and the command-line tools.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf; tests mute it
// with SetLogger(nil).
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf and returns the previous logger so callers can
// restore it. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	prev := Logf
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return prev
	}
	Logf = f
	return prev
}

// Prefixed returns a logger that writes through Logf with a fixed tag, for
// example "[train] ".
func Prefixed(prefix string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
