package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func lineProtocol(points ...*write.Point) string {
	var sb strings.Builder
	for _, p := range points {
		sb.WriteString(write.PointToLineProtocol(p, time.Nanosecond))
	}
	return strings.TrimSpace(sb.String())
}

func TestInfluxSink_RecordWindow(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	m := coremetrics.WindowMetric{
		RunID:     "run-1",
		Window:    "2021-01",
		Start:     start,
		End:       start.Add(23 * time.Hour),
		Size:      24,
		Objective: -14.60049,
		Terms:     map[string]float64{"Spinning Reserve": -14.6, "Alpha": 0.0004},
		Duration:  1500 * time.Microsecond,
	}
	require.NoError(t, sink.RecordWindow(m))

	p := write.NewPointWithMeasurement("scenario_window").
		AddTag("run_id", "run-1").
		AddTag("window", "2021-01").
		AddTag("failed", "false").
		AddField("size", 24).
		AddField("objective", -14.6).
		AddField("solve_ms", 1.5).
		SetTime(start).
		AddField("term Alpha", 0.0).
		AddField("term Spinning Reserve", -14.6)
	bodies := rec.all()
	require.Len(t, bodies, 1)
	assert.Equal(t, lineProtocol(p), bodies[0])
}

func TestInfluxSink_RecordFailedWindow(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})

	start := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	err := sink.RecordWindow(coremetrics.WindowMetric{RunID: "r", Window: "2021-02", Start: start, Size: 2, Error: "infeasible"})
	require.NoError(t, err)

	p := write.NewPointWithMeasurement("scenario_window").
		AddTag("run_id", "r").
		AddTag("window", "2021-02").
		AddTag("failed", "true").
		AddField("size", 2).
		AddField("objective", 0.0).
		AddField("solve_ms", 0.0).
		SetTime(start).
		AddField("error", "infeasible")
	bodies := rec.all()
	require.Len(t, bodies, 1)
	assert.Equal(t, lineProtocol(p), bodies[0])
}

func TestInfluxSink_RecordRequirement(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})

	t0 := time.Date(2021, 7, 1, 17, 0, 0, 0, time.UTC)
	idx := []time.Time{t0, t0.Add(time.Hour)}
	req := model.NewRequirement(model.DischargeDispatch, model.Min, "Resource Adequacy",
		timeseries.Series{Name: "RA Discharge Min (kW)", Index: idx, Values: []float64{12.5, 12.5}})
	require.NoError(t, sink.RecordRequirement(coremetrics.RequirementMetric{RunID: "r", Requirement: req}))

	points := make([]*write.Point, 0, len(idx))
	for _, ts := range idx {
		points = append(points, write.NewPointWithMeasurement("requirement").
			AddTag("run_id", "r").
			AddTag("source", "Resource Adequacy").
			AddTag("kind", string(model.DischargeDispatch)).
			AddTag("direction", string(model.Min)).
			AddField("value", 12.5).
			SetTime(ts))
	}
	bodies := rec.all()
	require.Len(t, bodies, 1)
	assert.Equal(t, lineProtocol(points...), bodies[0])
}

func TestInfluxSink_RecordEmptyRequirement(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})

	req := model.NewRequirement(model.Energy, model.Min, "Resource Adequacy", timeseries.Series{})
	require.NoError(t, sink.RecordRequirement(coremetrics.RequirementMetric{RunID: "r", Requirement: req}))
	assert.Empty(t, rec.all())
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})

	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	m := coremetrics.RunMetric{RunID: "r", Phase: "failed", Windows: 3, Requirements: 2, Duration: 2 * time.Second, Error: "boom", Time: now}
	require.NoError(t, sink.RecordRun(m))

	p := write.NewPointWithMeasurement("scenario_run").
		AddTag("run_id", "r").
		AddTag("phase", "failed").
		AddField("windows", 3).
		AddField("requirements", 2).
		AddField("duration_ms", 2000.0).
		SetTime(now).
		AddField("error", "boom")
	bodies := rec.all()
	require.Len(t, bodies, 1)
	assert.Equal(t, lineProtocol(p), bodies[0])
	assert.NoError(t, sink.Flush())
}

func TestInfluxSink_WriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	err := sink.RecordWindow(coremetrics.WindowMetric{RunID: "r", Window: "0", Start: time.Now()})
	assert.Error(t, err)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{
		URL:    srv.URL + "/api/v2/write",
		Token:  "tok",
		Org:    "org",
		Bucket: "bucket",
	})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
