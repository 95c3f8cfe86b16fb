package scenarios

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/app/plugins"
	"github.com/kilianp07/derval/core/factory"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
	"github.com/kilianp07/derval/infra/dataset"
)

func RunScenario(t *testing.T, sc *Scenario) {
	in, err := sc.Inputs()
	require.NoError(t, err)

	conf := map[string]any{"dt": sc.DT}
	for k, v := range sc.RA {
		conf[k] = v
	}
	vs, err := plugins.NewStream(factory.ModuleConfig{Type: "resource_adequacy", Conf: conf}, in)
	require.NoError(t, err)
	ra, ok := vs.(*valuestream.ResourceAdequacy)
	require.True(t, ok)

	ders := make([]model.DER, len(sc.Fleet))
	for i, m := range sc.Fleet {
		ders[i], err = plugins.NewResource(m)
		require.NoError(t, err)
	}

	require.NoError(t, ra.GrowDropData([]int{sc.Year}, timeseries.Duration(sc.DT), 0))
	set := valuestream.NewRequirementSet()
	require.NoError(t, ra.CalculateSystemRequirements(ders, set))
	reqs := set.Finish()

	exp := sc.Expected
	starts := ra.EventStartTimes()
	assert.Len(t, starts, exp.StartCount, "event starts")
	if len(exp.Starts) > 0 {
		assert.Equal(t, exp.Starts, format(starts))
	}
	assert.Len(t, ra.EventIntervals(), exp.Intervals, "event intervals")

	peaks := format(ra.PeakIntervals())
	for _, p := range exp.IncludesPeaks {
		assert.Contains(t, peaks, normalize(t, p))
	}
	for _, p := range exp.ExcludesPeaks {
		assert.NotContains(t, peaks, normalize(t, p))
	}

	assert.InDelta(t, exp.QualifyingCapacity, ra.QualifyingCapacity(), 1e-9)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.Kind(exp.Kind), reqs[0].Kind())
	assert.Equal(t, model.Min, reqs[0].Direction())
	for _, v := range reqs[0].Series().Values {
		assert.InDelta(t, exp.Value, v, 1e-9)
	}
}

func format(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(timeseries.DateTimeLayout)
	}
	return out
}

func normalize(t *testing.T, s string) string {
	ts, err := dataset.ParseTime(s)
	require.NoError(t, err)
	return ts.Format(timeseries.DateTimeLayout)
}
