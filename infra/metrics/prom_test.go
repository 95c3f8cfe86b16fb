package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/core/events"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

func TestPromSink_RecordWindow(t *testing.T) {
	sink, err := NewPromSink(PromConfig{Namespace: "test"})
	require.NoError(t, err)

	require.NoError(t, sink.RecordWindow(coremetrics.WindowMetric{
		Window: "2021-01", Size: 24, Duration: 10 * time.Millisecond,
		Terms: map[string]float64{"Spinning Reserve": -10},
	}))
	require.NoError(t, sink.RecordWindow(coremetrics.WindowMetric{
		Window: "2021-02", Size: 24,
		Terms: map[string]float64{"Spinning Reserve": -5},
	}))
	require.NoError(t, sink.RecordWindow(coremetrics.WindowMetric{Window: "2021-03", Error: "infeasible"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.windows.WithLabelValues("solved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.windows.WithLabelValues("failed")))
	assert.Equal(t, -15.0, testutil.ToFloat64(sink.objective.WithLabelValues("Spinning Reserve")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.solveSeconds))
}

func TestPromSink_RunResetsGauges(t *testing.T) {
	sink, err := NewPromSink(PromConfig{})
	require.NoError(t, err)

	idx := []time.Time{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	req := model.NewRequirement(model.POIImport, model.Max, "User Constraints",
		timeseries.Series{Index: idx, Values: []float64{0}})
	require.NoError(t, sink.RecordRequirement(coremetrics.RequirementMetric{Requirement: req}))
	require.NoError(t, sink.RecordWindow(coremetrics.WindowMetric{Terms: map[string]float64{"a": 1}}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.requirements.WithLabelValues("User Constraints", "poi import", "max")))

	require.NoError(t, sink.RecordRun(coremetrics.RunMetric{Phase: events.PhaseStarted}))
	assert.Equal(t, 0, testutil.CollectAndCount(sink.requirements))
	assert.Equal(t, 0, testutil.CollectAndCount(sink.objective))

	require.NoError(t, sink.RecordRun(coremetrics.RunMetric{Phase: events.PhaseFinished, Duration: 3 * time.Second}))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.runSeconds))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues(events.PhaseFinished)))
}

func TestPromSink_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(PromConfig{}, reg, reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(PromConfig{}, reg, reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordWindow(coremetrics.WindowMetric{}))
	require.NoError(t, b.RecordWindow(coremetrics.WindowMetric{}))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.windows.WithLabelValues("solved")))
}

func TestPromSink_FlushTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "derval.prom")
	sink, err := NewPromSink(PromConfig{Textfile: path})
	require.NoError(t, err)
	require.NoError(t, sink.RecordRun(coremetrics.RunMetric{Phase: events.PhaseStarted}))

	require.NoError(t, sink.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `derval_runs_total{phase="started"} 1`), string(data))
}

func TestPromSink_FlushWithoutTextfile(t *testing.T) {
	sink, err := NewPromSink(PromConfig{Listen: ":9100"})
	require.NoError(t, err)
	assert.NoError(t, sink.Flush())
	assert.Equal(t, ":9100", sink.Listen())
	assert.NotNil(t, sink.Gatherer())
}
