// Package logging carries diagnostics from the session layer and heightinfo:
// failed loads, skipped filters and listing errors. Library packages do not
// log.
package logging

import "log"

// Logf receives every diagnostic line. Tests swap it to capture or silence
// output; the default writes through the standard logger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger routes diagnostics to f, or discards them when f is nil.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Verbosef forwards to Logf when heightinfo runs with -v.
func Verbosef(enabled bool, format string, v ...interface{}) {
	if enabled {
		Logf(format, v...)
	}
}
