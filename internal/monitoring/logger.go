// Package monitoring provides the process-wide diagnostic logger used by the
// pipeline packages. Keeping it settable lets tests mute output and lets the
// CLI redirect everything through one sink.
package monitoring

import (
	"log"
	"os"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// debugEnabled gates Debugf output. Set POLARSEG_DEBUG to any non-empty value
// to enable verbose per-scan logging.
var debugEnabled = os.Getenv("POLARSEG_DEBUG") != ""

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug toggles verbose logging independent of the environment.
func SetDebug(on bool) {
	debugEnabled = on
}

// Debugf logs through Logf only when verbose logging is enabled. Per-scan
// chatter (cell counts, timing) goes through here so normal runs stay quiet.
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Logf(format, v...)
	}
}
