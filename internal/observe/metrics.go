package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments describing one watch session's
// behavior over time: the events it observed, the streams it opened,
// and the recoveries it went through.
type Metrics struct {
	events       metric.Int64Counter
	streamOpens  metric.Int64Counter
	openFailures metric.Int64Counter
	resyncs      metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	events, err := meter.Int64Counter(
		"rewatch.events",
		metric.WithDescription("Watch events observed, by event type."),
	)
	if err != nil {
		return nil, err
	}

	streamOpens, err := meter.Int64Counter(
		"rewatch.stream.opens",
		metric.WithDescription("Watch streams opened successfully."),
	)
	if err != nil {
		return nil, err
	}

	openFailures, err := meter.Int64Counter(
		"rewatch.stream.open_failures",
		metric.WithDescription("Watch open attempts that failed at the connection level, by reason."),
	)
	if err != nil {
		return nil, err
	}

	resyncs, err := meter.Int64Counter(
		"rewatch.resyncs",
		metric.WithDescription("Times the resume position expired and the watch restarted from current state."),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		events:       events,
		streamOpens:  streamOpens,
		openFailures: openFailures,
		resyncs:      resyncs,
	}, nil
}

func (m *Metrics) Event(ctx context.Context, eventType string) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
}

func (m *Metrics) StreamOpened(ctx context.Context) {
	m.streamOpens.Add(ctx, 1)
}

func (m *Metrics) OpenFailed(ctx context.Context, reason string) {
	m.openFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) Resync(ctx context.Context) {
	m.resyncs.Add(ctx, 1)
}
