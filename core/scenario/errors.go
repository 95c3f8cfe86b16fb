package scenario

import (
	"fmt"
	"strings"
	"time"
)

// WindowError reports a failed sub-window solve together with the streams
// that contributed to it.
type WindowError struct {
	Window  string
	Start   time.Time
	End     time.Time
	Streams []string
	Err     error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %s (%s to %s) with %s: %v", e.Window,
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), strings.Join(e.Streams, ", "), e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }

// StreamError reports a failed lifecycle step of one value stream.
type StreamError struct {
	Stream string
	Step   string
	Err    error
}

func (e *StreamError) Error() string { return fmt.Sprintf("%s: %s: %v", e.Stream, e.Step, e.Err) }

func (e *StreamError) Unwrap() error { return e.Err }
