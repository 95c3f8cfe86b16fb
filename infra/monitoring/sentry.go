package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	coremon "github.com/kilianp07/derval/core/monitoring"
)

// SentryConfig defines settings for Sentry error monitoring.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// Enabled reports whether a DSN is configured.
func (c SentryConfig) Enabled() bool { return c.DSN != "" }

// NewSentryMonitor initializes Sentry using the provided configuration and
// returns a Monitor implementation.
func NewSentryMonitor(cfg SentryConfig) (coremon.Monitor, error) {
	if !cfg.Enabled() {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{hub: sentry.CurrentHub()}, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

// CaptureException sends err with the tags set on a dedicated scope. Errors
// tagged with a stream are grouped per stream and step rather than per stack.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if stream, ok := tags["stream"]; ok {
			scope.SetFingerprint([]string{"{{ default }}", stream, tags["step"]})
		}
		if run, ok := tags["run_id"]; ok {
			scope.SetContext("run", sentry.Context{"id": run, "window": tags["window"]})
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		s.hub.Recover(r)
		s.hub.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
