// Package monitoring holds the process-wide diagnostic logger shared by the
// pipeline stages and the threshold optimizer.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logger consumes one formatted diagnostic line.
type Logger func(format string, v ...interface{})

// sink is swapped atomically: tiles may be processed by parallel workers, and
// a test muting the logger must not race with a worker mid-tile.
var sink atomic.Value

func init() {
	sink.Store(Logger(log.Printf))
}

// Logf writes one diagnostic line through the current sink. It defaults to
// log.Printf until SetLogger replaces it.
func Logf(format string, v ...interface{}) {
	sink.Load().(Logger)(format, v...)
}

// SetLogger replaces the sink. Passing nil mutes all diagnostics.
func SetLogger(l Logger) {
	if l == nil {
		l = func(string, ...interface{}) {}
	}
	sink.Store(l)
}

// Stage returns a Logger that prefixes every message with a stage name, so
// per-tile logs from validation, completion and identification stay readable
// when tiles are processed back to back.
func Stage(name string) Logger {
	return func(format string, v ...interface{}) {
		Logf("["+name+"] "+format, v...)
	}
}
