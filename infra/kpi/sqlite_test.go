package kpi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/derval/core/metrics"
)

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	day := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i >= 0; i-- {
		start := day.AddDate(0, 0, i)
		require.NoError(t, s.RecordWindow(coremetrics.WindowMetric{
			RunID: "r1", Window: start.Format("2006-01-02"), Start: start, End: start.Add(23 * time.Hour),
			Size: 24, Objective: -float64(i + 1), Duration: 1500 * time.Microsecond,
		}))
	}
	// same window again replaces the row
	require.NoError(t, s.RecordWindow(coremetrics.WindowMetric{
		RunID: "r1", Window: "2021-01-02", Start: day.AddDate(0, 0, 1), Size: 24, Error: "infeasible",
	}))
	require.NoError(t, s.RecordRun(coremetrics.RunMetric{RunID: "r1", Phase: "started", Time: day}))
	require.NoError(t, s.RecordRun(coremetrics.RunMetric{
		RunID: "r1", Phase: "failed", Windows: 1, Requirements: 2, Duration: time.Second, Error: "infeasible", Time: day.Add(time.Minute),
	}))

	wins, err := s.Windows("r1")
	require.NoError(t, err)
	require.Len(t, wins, 2)
	assert.Equal(t, "2021-01-01", wins[0].Window)
	assert.Equal(t, -1.0, wins[0].Objective)
	assert.Equal(t, 1500*time.Microsecond, wins[0].Duration)
	assert.True(t, wins[1].Failed())

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "started", runs[0].Phase)
	assert.Equal(t, "failed", runs[1].Phase)
	assert.Equal(t, 2, runs[1].Requirements)
	assert.Equal(t, time.Second, runs[1].Duration)
	assert.True(t, runs[1].Time.Equal(day.Add(time.Minute)))

	empty, err := s.Windows("other")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Flush())

	// data survives reopening
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
