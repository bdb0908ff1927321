// Package metrics owns the OpenTelemetry meter provider exported through
// Prometheus and the instruments recorded around upstream detection calls.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const meterName = "agroscan"

// Outcome labels recorded for every upstream call.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// NewMeterProvider builds a meter provider whose readings are exposed on reg.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// Upstream records request counts and latencies of calls to the detection API.
// A nil *Upstream records nothing.
type Upstream struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewUpstream registers the upstream instruments on mp.
func NewUpstream(mp metric.MeterProvider) (*Upstream, error) {
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter("detector.requests",
		metric.WithDescription("Number of requests sent to the detection API."))
	if err != nil {
		return nil, fmt.Errorf("could not create requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("detector.request.duration",
		metric.WithDescription("Latency of requests sent to the detection API."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &Upstream{requests: requests, duration: duration}, nil
}

// Record adds one call of the given operation and outcome.
func (u *Upstream) Record(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if u == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	u.requests.Add(ctx, 1, attrs)
	u.duration.Record(ctx, elapsed.Seconds(), attrs)
}
