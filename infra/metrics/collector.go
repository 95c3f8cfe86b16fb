package metrics

import (
	"context"
	"strconv"

	"github.com/kilianp07/derval/core/events"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.WindowEvent:
		_ = sink.RecordWindow(coremetrics.WindowMetric{
			RunID:     e.RunID,
			Window:    windowName(e),
			Start:     e.Start,
			End:       e.End,
			Size:      e.Size,
			Objective: e.Objective,
			Terms:     e.Terms,
			Duration:  e.Duration,
			Error:     errString(e.Err),
		})
	case events.RequirementEvent:
		if r, ok := sink.(coremetrics.RequirementRecorder); ok {
			_ = r.RecordRequirement(coremetrics.RequirementMetric{
				RunID:       e.RunID,
				Requirement: e.Requirement,
				Time:        e.Time,
			})
		}
	case events.RunEvent:
		if r, ok := sink.(coremetrics.RunRecorder); ok {
			_ = r.RecordRun(coremetrics.RunMetric{
				RunID:        e.RunID,
				Phase:        e.Phase,
				Windows:      e.Windows,
				Requirements: e.Requirements,
				Duration:     e.Duration,
				Error:        errString(e.Err),
				Time:         e.Time,
			})
		}
	}
}

func windowName(e events.WindowEvent) string {
	if e.Label != "" {
		return e.Label
	}
	return strconv.Itoa(e.Window)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
