package valuestream

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/derval/core/factory"
	"github.com/kilianp07/derval/core/logger"
	"github.com/kilianp07/derval/core/timeseries"
)

var (
	// ErrModelParameter reports a missing or invalid configuration key.
	ErrModelParameter = errors.New("model parameter error")
	// ErrTimeseriesMissing reports a required time-series column that is absent.
	ErrTimeseriesMissing = errors.New("time series column missing")
	// ErrTimeseriesData reports time-series values that cannot be used.
	ErrTimeseriesData = errors.New("time series data error")
	// ErrMonthlyData reports missing or malformed monthly data.
	ErrMonthlyData = errors.New("monthly data error")
)

// Inputs are the data tables shared by every stream of a scenario.
type Inputs struct {
	TimeSeries *timeseries.Frame
	Monthly    *timeseries.Frame
	Log        logger.Logger
}

func (in Inputs) series(stream, column string) (timeseries.Series, error) {
	if in.TimeSeries == nil {
		return timeseries.Series{}, fmt.Errorf("%w: %s needs %q", ErrTimeseriesMissing, stream, column)
	}
	s, ok := in.TimeSeries.Series(column)
	if !ok {
		return timeseries.Series{}, fmt.Errorf("%w: %s needs %q", ErrTimeseriesMissing, stream, column)
	}
	return s, nil
}

func (in Inputs) optionalSeries(column string) (timeseries.Series, bool) {
	if in.TimeSeries == nil {
		return timeseries.Series{}, false
	}
	return in.TimeSeries.Series(column)
}

func (in Inputs) monthly(column string) (timeseries.Series, bool) {
	if in.Monthly == nil {
		return timeseries.Series{}, false
	}
	return in.Monthly.Series(column)
}

// requireKeys fails with ErrModelParameter listing every absent key.
func requireKeys(stream string, conf map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := conf[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s requires %s", ErrModelParameter, stream, strings.Join(missing, ", "))
}

func decode(stream string, conf map[string]any, out any) error {
	if err := factory.Decode(conf, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelParameter, stream, err)
	}
	return nil
}
