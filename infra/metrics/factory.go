package metrics

import (
	"github.com/kilianp07/derval/core/factory"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/infra/kpi"
)

// SQLiteConfig locates the run history database.
type SQLiteConfig struct {
	Path string `json:"path"`
}

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c PromConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPromSink(c)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})

	_ = coremetrics.RegisterMetricsSink("sqlite", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "runs.db"
		}
		return kpi.NewSQLiteStore(c.Path)
	})
}
