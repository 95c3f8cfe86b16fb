package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient is a small helper around the official InfluxDB v2 client
// used by the E2E tests to read back what the metrics sink wrote.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a new client for the given parameters. It assumes
// the server is already running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{
		org:    org,
		bucket: bucket,
		client: c,
		query:  c.QueryAPI(org),
	}
}

// Count returns the number of records of measurement written under runID.
func (c *InfluxClient) Count(ctx context.Context, measurement, field, runID string) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.run_id == %q)`,
		c.bucket, measurement, field, runID)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
