package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/infra/logger"
)

// InfluxConfig configures an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes solved windows and requirement series to InfluxDB using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordWindow writes one point per window, with one field per objective term.
func (s *InfluxSink) RecordWindow(m coremetrics.WindowMetric) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scenario_window").
		AddTag("run_id", m.RunID).
		AddTag("window", m.Window).
		AddTag("failed", boolTag(m.Failed())).
		AddField("size", m.Size).
		AddField("objective", round3(m.Objective)).
		AddField("solve_ms", round3(m.Duration.Seconds()*1000)).
		SetTime(m.Start)
	terms := make([]string, 0, len(m.Terms))
	for term := range m.Terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for _, term := range terms {
		p = p.AddField("term "+term, round3(m.Terms[term]))
	}
	if m.Failed() {
		p = p.AddField("error", m.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRequirement writes the requirement as a series of points, one per
// bounded timestamp.
func (s *InfluxSink) RecordRequirement(m coremetrics.RequirementMetric) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r := m.Requirement
	series := r.Series()
	points := make([]*write.Point, 0, series.Len())
	for i, t := range series.Index {
		points = append(points, write.NewPointWithMeasurement("requirement").
			AddTag("run_id", m.RunID).
			AddTag("source", r.Source()).
			AddTag("kind", string(r.Kind())).
			AddTag("direction", string(r.Direction())).
			AddField("value", round3(series.Values[i])).
			SetTime(t))
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRun writes a lifecycle step.
func (s *InfluxSink) RecordRun(m coremetrics.RunMetric) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scenario_run").
		AddTag("run_id", m.RunID).
		AddTag("phase", m.Phase).
		AddField("windows", m.Windows).
		AddField("requirements", m.Requirements).
		AddField("duration_ms", round3(m.Duration.Seconds()*1000)).
		SetTime(m.Time)
	if m.Error != "" {
		p = p.AddField("error", m.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// Flush closes the client.
func (s *InfluxSink) Flush() error {
	s.client.Close()
	return nil
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
