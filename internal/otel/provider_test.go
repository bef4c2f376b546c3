package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Nil(t, p.MeterProvider())
	assert.NotNil(t, p.Meter("firerig"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "firerig"})
	assert.Error(t, err)
}

func TestNew_FileExporterWritesMetrics(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "firerig",
		BatchTimeout:   time.Second,
		MetricInterval: time.Hour,
		LogWriter:      &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	require.NotNil(t, p.MeterProvider())

	counter, err := p.Meter("firerig").Int64Counter("sessions.opened")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	// The interval is an hour, so only Flush can have put the counter in the file.
	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "sessions.opened")

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_MeterFeedsReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	p := &Provider{
		cfg:    Config{Enabled: true},
		meters: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}

	counter, err := p.Meter("firerig").Int64Counter("ticks")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	assert.NoError(t, p.Shutdown(context.Background()))
}
