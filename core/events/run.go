package events

import "time"

// Run phases carried by RunEvent.
const (
	PhaseStarted      = "started"
	PhaseRequirements = "requirements"
	PhaseFinished     = "finished"
	PhaseFailed       = "failed"
)

// RunEvent is published at each lifecycle step of a scenario run.
type RunEvent struct {
	RunID        string
	Phase        string
	Streams      []string
	Windows      int
	Requirements int
	Err          error
	Duration     time.Duration
	Time         time.Time
}
