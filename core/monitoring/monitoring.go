// Package monitoring reports scenario failures to an error tracker. The
// global monitor defaults to a no-op implementation.
package monitoring

import (
	"errors"
	"strings"
	"time"

	"github.com/kilianp07/derval/core/scenario"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil {
		current.CaptureException(err, tags)
	}
}

// Recover captures panics in goroutines.
func Recover() {
	if current != nil {
		current.Recover()
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}

// Tags describes a scenario error: the failed window and its streams, or the
// stream and lifecycle step that failed.
func Tags(err error, runID string) map[string]string {
	tags := map[string]string{"module": "scenario"}
	if runID != "" {
		tags["run_id"] = runID
	}
	var we *scenario.WindowError
	if errors.As(err, &we) {
		tags["window"] = we.Window
		tags["streams"] = strings.Join(we.Streams, ",")
	}
	var se *scenario.StreamError
	if errors.As(err, &se) {
		tags["stream"] = se.Stream
		tags["step"] = se.Step
	}
	return tags
}
