package events

import "time"

// WindowEvent is published after each optimization sub-window, solved or not.
// Terms holds the value of every objective term when the solve succeeded.
type WindowEvent struct {
	RunID     string
	Window    int
	Label     string
	Start     time.Time
	End       time.Time
	Size      int
	Objective float64
	Terms     map[string]float64
	Duration  time.Duration
	Err       error
}
