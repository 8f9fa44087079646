// Package devlog is the fallback logging sink used when a Device's Log
// callback is nil (spec.md §6's "log" callback is the primary surface;
// this package only backs its absence so construction/teardown still
// produces diagnostics somewhere).
package devlog

import (
	"os"

	"github.com/charmbracelet/log"
)

var fallback = newFallbackLogger()

// newFallbackLogger builds the package-level logger at a level derived
// from AUDIODEVICE_LOG_LEVEL, defaulting to Info when the variable is
// unset or unparseable.
func newFallbackLogger() *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "audiodevice",
	})
	if raw := os.Getenv("AUDIODEVICE_LOG_LEVEL"); raw != "" {
		if lvl, err := log.ParseLevel(raw); err == nil {
			l.SetLevel(lvl)
		}
	}
	return l
}

// Sink is the narrow surface a Device needs from a logger: one line per
// message, structured with a handful of key-value fields.
type Sink interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// charmSink adapts *log.Logger to Sink.
type charmSink struct {
	l *log.Logger
}

func (s charmSink) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s charmSink) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }
func (s charmSink) Error(msg string, fields ...any) { s.l.Error(msg, fields...) }

// Default returns the process-wide fallback sink, tagged with backend
// and device identifying fields so lines from concurrent devices/workers
// can be told apart.
func Default(backend, device string) Sink {
	return charmSink{l: fallback.With("backend", backend, "device", device)}
}

// Discard is a Sink that drops everything, for callers that need a
// non-nil Sink without log output.
var Discard Sink = discard{}

type discard struct{}

func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
