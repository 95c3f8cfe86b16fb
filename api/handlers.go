// Package api serves the requirement plan and the run history over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/derval/app"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/pkg/export"
)

// History is the run history read by the runs endpoints.
type History interface {
	Runs() ([]coremetrics.RunMetric, error)
	Windows(runID string) ([]coremetrics.WindowMetric, error)
}

// Handler answers the API routes from a computed plan and an optional run
// history.
type Handler struct {
	plan    app.Plan
	history History
}

// NewHandler creates a handler. history may be nil.
func NewHandler(plan app.Plan, history History) *Handler {
	return &Handler{plan: plan, history: history}
}

// Requirements handles GET /api/v1/requirements. The optional source and kind
// query parameters filter the list.
func (h *Handler) Requirements(c *gin.Context) {
	source := c.Query("source")
	kind := c.Query("kind")
	var reqs []model.Requirement
	for _, r := range h.plan.Requirements {
		if source != "" && !strings.EqualFold(r.Source(), source) {
			continue
		}
		if kind != "" && string(r.Kind()) != kind {
			continue
		}
		reqs = append(reqs, r)
	}
	c.JSON(http.StatusOK, export.RequirementRecords(reqs))
}

// Events handles GET /api/v1/events.
func (h *Handler) Events(c *gin.Context) {
	events := h.plan.Events
	if events == nil {
		events = []app.EventSummary{}
	}
	c.JSON(http.StatusOK, events)
}

// Runs handles GET /api/v1/runs.
func (h *Handler) Runs(c *gin.Context) {
	if !h.hasHistory(c) {
		return
	}
	runs, err := h.history.Runs()
	if err != nil {
		abort(c, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	out := make([]RunRecord, len(runs))
	for i, r := range runs {
		out[i] = RunRecord{
			RunID:        r.RunID,
			Phase:        r.Phase,
			Time:         r.Time,
			Windows:      r.Windows,
			Requirements: r.Requirements,
			DurationMS:   millis(r.Duration),
			Error:        r.Error,
		}
	}
	c.JSON(http.StatusOK, out)
}

// Windows handles GET /api/v1/runs/:id/windows.
func (h *Handler) Windows(c *gin.Context) {
	if !h.hasHistory(c) {
		return
	}
	id := c.Param("id")
	wins, err := h.history.Windows(id)
	if err != nil {
		abort(c, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	if len(wins) == 0 {
		abort(c, http.StatusNotFound, "RUN_NOT_FOUND", "no windows recorded for run "+id)
		return
	}
	out := make([]WindowRecord, len(wins))
	for i, w := range wins {
		out[i] = WindowRecord{
			Window:     w.Window,
			Start:      w.Start,
			End:        w.End,
			Size:       w.Size,
			Objective:  w.Objective,
			DurationMS: millis(w.Duration),
			Error:      w.Error,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) hasHistory(c *gin.Context) bool {
	if h.history == nil {
		abort(c, http.StatusNotFound, "NO_HISTORY", "run history is not configured")
		return false
	}
	return true
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
