package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/platform43/firerig/internal/dispatcher"

// instruments are the dispatcher metrics. Every data point carries a command attribute.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	latency   metric.Float64Histogram
}

func newInstruments(m metric.Meter) (*instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	var (
		in  instruments
		err error
	)
	if in.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Commands waiting in a buffered queue")); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	if in.processed, err = m.Int64Counter("dispatcher.commands.processed",
		metric.WithDescription("Commands handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if in.failed, err = m.Int64Counter("dispatcher.commands.failed",
		metric.WithDescription("Commands whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("dispatcher.commands.dropped",
		metric.WithDescription("Commands dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if in.latency, err = m.Float64Histogram("dispatcher.command.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &in, nil
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

// observeQueues reports the depth of each buffered queue on collection.
func (d *Dispatcher) observeQueues(m metric.Meter) error {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	_, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, buf := range d.buffers {
			o.ObserveInt64(d.metrics.queueSize, int64(len(buf)), commandAttr(cmd))
		}
		return nil
	}, d.metrics.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	return nil
}

func (d *Dispatcher) recordRun(command string, start time.Time, err error) {
	ctx := context.Background()
	attr := commandAttr(command)
	d.metrics.processed.Add(ctx, 1, attr)
	d.metrics.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attr)
	if err != nil {
		d.metrics.failed.Add(ctx, 1, attr)
	}
}
