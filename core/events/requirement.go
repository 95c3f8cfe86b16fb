package events

import (
	"time"

	"github.com/kilianp07/derval/core/model"
)

// RequirementEvent is published for every requirement once the set is
// finished.
type RequirementEvent struct {
	RunID       string
	Requirement model.Requirement
	Time        time.Time
}
