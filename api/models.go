package api

import "time"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunRecord is one recorded phase of a scenario run.
type RunRecord struct {
	RunID        string    `json:"run_id"`
	Phase        string    `json:"phase"`
	Time         time.Time `json:"time"`
	Windows      int       `json:"windows"`
	Requirements int       `json:"requirements"`
	DurationMS   float64   `json:"duration_ms"`
	Error        string    `json:"error,omitempty"`
}

// WindowRecord is one solved or failed sub-window of a run.
type WindowRecord struct {
	Window     string    `json:"window"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Size       int       `json:"size"`
	Objective  float64   `json:"objective"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}
