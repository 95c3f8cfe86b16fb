package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/core/events"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/internal/eventbus"
)

type recordingSink struct {
	mu      sync.Mutex
	windows []coremetrics.WindowMetric
	reqs    []coremetrics.RequirementMetric
	runs    []coremetrics.RunMetric
}

func (r *recordingSink) RecordWindow(m coremetrics.WindowMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, m)
	return nil
}

func (r *recordingSink) RecordRequirement(m coremetrics.RequirementMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, m)
	return nil
}

func (r *recordingSink) RecordRun(m coremetrics.RunMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, m)
	return nil
}

func (r *recordingSink) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows), len(r.reqs), len(r.runs)
}

type windowOnlySink struct{ n int }

func (w *windowOnlySink) RecordWindow(coremetrics.WindowMetric) error { w.n++; return nil }

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink)

	// Subscription happens synchronously, so published events are queued.
	req := model.NewRequirement(model.Energy, model.Min, "Resource Adequacy", timeseries.Series{})
	bus.Publish(events.RunEvent{RunID: "r", Phase: events.PhaseStarted})
	bus.Publish(events.RequirementEvent{RunID: "r", Requirement: req})
	bus.Publish(events.WindowEvent{RunID: "r", Window: 3, Err: errors.New("infeasible")})
	bus.Publish("ignored")

	require.Eventually(t, func() bool {
		w, q, r := sink.counts()
		return w == 1 && q == 1 && r == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}

	assert.Equal(t, "3", sink.windows[0].Window)
	assert.Equal(t, "infeasible", sink.windows[0].Error)
	assert.Equal(t, "Resource Adequacy", sink.reqs[0].Requirement.Source())
	assert.Equal(t, events.PhaseStarted, sink.runs[0].Phase)
}

func TestStartEventCollector_WindowOnlySink(t *testing.T) {
	bus := eventbus.New()
	sink := &windowOnlySink{}
	done := StartEventCollector(context.Background(), bus, sink)

	bus.Publish(events.RunEvent{Phase: events.PhaseStarted})
	bus.Publish(events.WindowEvent{Label: "2021-01"})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop on bus close")
	}
	assert.Equal(t, 1, sink.n)
}

func TestStartEventCollector_NilArgs(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{})
	_, open := <-done
	assert.False(t, open)
}
