package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/app"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/pkg/export"
)

type fakeHistory struct {
	runs    []coremetrics.RunMetric
	windows map[string][]coremetrics.WindowMetric
	err     error
}

func (f fakeHistory) Runs() ([]coremetrics.RunMetric, error) { return f.runs, f.err }
func (f fakeHistory) Windows(id string) ([]coremetrics.WindowMetric, error) {
	return f.windows[id], f.err
}

var t0 = time.Date(2021, 7, 1, 17, 0, 0, 0, time.UTC)

func testPlan() app.Plan {
	idx := []time.Time{t0, t0.Add(time.Hour)}
	return app.Plan{
		Requirements: []model.Requirement{
			model.NewRequirement(model.DischargeDispatch, model.Min, "Resource Adequacy",
				timeseries.Series{Name: "RA Discharge Min (kW)", Index: idx, Values: []float64{20, 20}}),
			model.NewRequirement(model.POIImport, model.Max, "User Constraints",
				timeseries.Series{Name: "POI: Max Import (kW)", Index: idx, Values: []float64{50, 50}}),
		},
		Events: []app.EventSummary{{Stream: "Resource Adequacy", QualifyingCapacity: 20, Peaks: idx[:1], Starts: idx[:1], Intervals: 2}},
	}
}

func do(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequirements(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(testPlan(), nil), "")

	w := do(t, r, "/api/v1/requirements", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []export.RequirementRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "der dispatch discharge", got[0].Kind)
	assert.Equal(t, []float64{20, 20}, got[0].Values)

	w = do(t, r, "/api/v1/requirements?source=user%20constraints", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "poi import", got[0].Kind)

	w = do(t, r, "/api/v1/requirements?kind=energy", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := do(t, NewRouter(NewHandler(testPlan(), nil), ""), "/api/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []app.EventSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, got[0].QualifyingCapacity)
	assert.True(t, got[0].Starts[0].Equal(t0))

	w = do(t, NewRouter(NewHandler(app.Plan{}, nil), ""), "/api/v1/events", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(testPlan(), nil), "secret")
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/v1/events", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/api/v1/events", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, r, "/api/v1/events", "secret").Code)
	assert.Equal(t, http.StatusOK, do(t, r, "/health", "").Code)
}

func TestRunHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hist := fakeHistory{
		runs: []coremetrics.RunMetric{{RunID: "r1", Phase: "finished", Windows: 2, Duration: 1500 * time.Millisecond, Time: t0}},
		windows: map[string][]coremetrics.WindowMetric{
			"r1": {{RunID: "r1", Window: "2021-07-01", Start: t0, Size: 24, Objective: -3}},
		},
	}
	r := NewRouter(NewHandler(testPlan(), hist), "")

	w := do(t, r, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 1500.0, runs[0].DurationMS)

	w = do(t, r, "/api/v1/runs/r1/windows", "")
	require.Equal(t, http.StatusOK, w.Code)
	var wins []WindowRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wins))
	require.Len(t, wins, 1)
	assert.Equal(t, -3.0, wins[0].Objective)

	w = do(t, r, "/api/v1/runs/missing/windows", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "RUN_NOT_FOUND", e.Error.Code)

	broken := NewRouter(NewHandler(testPlan(), fakeHistory{err: errors.New("db closed")}), "")
	assert.Equal(t, http.StatusInternalServerError, do(t, broken, "/api/v1/runs", "").Code)
}

func TestRunHistoryNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := do(t, NewRouter(NewHandler(testPlan(), nil), ""), "/api/v1/runs", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NO_HISTORY")
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := WithCORS(NewRouter(NewHandler(testPlan(), nil), ""), []string{"https://ui.example"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Origin", "https://ui.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://ui.example", w.Header().Get("Access-Control-Allow-Origin"))

	router := NewRouter(NewHandler(testPlan(), nil), "")
	assert.Same(t, router, WithCORS(router, nil))
}
