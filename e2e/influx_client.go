package e2e

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back what the influx metrics sink wrote during a test.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient connects to a running server; nothing is checked until
// the first call.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// BucketExists reports whether the configured bucket is visible to the
// token's organisation.
func (c *InfluxClient) BucketExists(ctx context.Context) (bool, error) {
	buckets, err := c.client.BucketsAPI().FindBucketsByOrgName(ctx, c.org)
	if err != nil {
		return false, fmt.Errorf("list buckets: %w", err)
	}
	if buckets == nil {
		return false, nil
	}
	for _, b := range *buckets {
		if b.Name == c.bucket {
			return true, nil
		}
	}
	return false, nil
}

// CountPoints counts the values of one field of a measurement written within
// the last window.
func (c *InfluxClient) CountPoints(ctx context.Context, measurement, field string, window time.Duration) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start:-%s) |> filter(fn:(r) => r._measurement == %q and r._field == %q)`,
		c.bucket, window, measurement, field)
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
