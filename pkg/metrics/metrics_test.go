package metrics_test

import (
	"agroscan/pkg/metrics"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestUpstream_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	u, err := metrics.NewUpstream(mp)
	require.NoError(t, err)

	ctx := context.Background()
	u.Record(ctx, "query", metrics.OutcomeSuccess, 20*time.Millisecond)
	u.Record(ctx, "query", metrics.OutcomeSuccess, 30*time.Millisecond)
	u.Record(ctx, "forward", metrics.OutcomeFailure, time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName["detector.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	require.EqualValues(t, 3, total)
	require.Len(t, sum.DataPoints, 2)

	hist, ok := byName["detector.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
}

func TestUpstream_NilIsNoop(t *testing.T) {
	var u *metrics.Upstream
	require.NotPanics(t, func() {
		u.Record(context.Background(), "query", metrics.OutcomeSuccess, time.Millisecond)
	})
}

func TestNewMeterProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, err := metrics.NewMeterProvider(reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	u, err := metrics.NewUpstream(mp)
	require.NoError(t, err)
	u.Record(context.Background(), "forward", metrics.OutcomeSuccess, 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "detector_requests") {
			found = true
		}
	}
	require.True(t, found, "detector requests counter should be exported")
}
