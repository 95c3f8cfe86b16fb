package valuestream

import (
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

func hourly(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func jan(day, hour int) time.Time {
	return time.Date(2021, time.January, day, hour, 0, 0, 0, time.UTC)
}

func flatLoad(index []time.Time, v float64) timeseries.Series {
	return timeseries.Constant(SystemLoadColumn, index, v)
}

func tsFrame(index []time.Time, cols map[string][]float64) *timeseries.Frame {
	f := timeseries.NewFrame(index)
	for name, vals := range cols {
		_ = f.Set(name, vals)
	}
	return f
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
