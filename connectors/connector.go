// Package connectors fetches price signals from external market data APIs.
package connectors

import (
	"context"
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

const ErrIncompatibleOption = "option %s is not supported by connector %s"

// PriceClient fetches market prices over a time range.
type PriceClient interface {
	Fetch(ctx context.Context, start, end time.Time, opts ...Option) (PriceResponse, error)
}

// PriceResponse holds fetched prices.
type PriceResponse interface {
	// Resample returns one price per index timestamp, taken from the interval
	// that contains it, multiplied by scale.
	Resample(name string, index []time.Time, scale float64) (timeseries.Series, error)
}

// Option configures a client before a fetch.
type Option func(PriceClient) error
