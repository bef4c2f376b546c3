package dispatcher

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, r *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, command string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, not an int64 sum", m.Name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if v, _ := dp.Attributes.Value(attribute.Key("command")); v.AsString() == command {
			return dp.Value
		}
	}
	return 0
}

func TestDispatcher_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	d, err := NewWithMeter(&testLogger{}, provider.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	d.Register("update", func(context.Context, Event) (any, error) { return nil, nil })
	d.Register("aim", func(context.Context, Event) (any, error) { return nil, errors.New("stowed") })

	for range 3 {
		d.Dispatch(ctx, Event{Command: "update"})
	}
	d.Dispatch(ctx, Event{Command: "aim"})

	got := collect(t, reader)
	if n := sumFor(t, got["dispatcher.commands.processed"], "update"); n != 3 {
		t.Errorf("expected 3 processed updates, got %d", n)
	}
	if n := sumFor(t, got["dispatcher.commands.failed"], "aim"); n != 1 {
		t.Errorf("expected 1 failed aim, got %d", n)
	}
	if n := sumFor(t, got["dispatcher.commands.failed"], "update"); n != 0 {
		t.Errorf("expected no failed updates, got %d", n)
	}
	hist, ok := got["dispatcher.command.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 2 {
		t.Errorf("expected a duration histogram per command, got %+v", got["dispatcher.command.duration"].Data)
	}
}
