package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("reorder-engine")

// EngineMetrics collects pass and webhook delivery metrics. A nil *EngineMetrics records nothing.
type EngineMetrics struct {
	passesCounter          metric.Int64Counter
	passDurationHistogram  metric.Float64Histogram
	productsEvaluated      metric.Int64Counter
	decisionsCounter       metric.Int64Counter
	deliveriesPendingGauge metric.Int64UpDownCounter
	attemptsCounter        metric.Int64Counter
	attemptDurationHist    metric.Float64Histogram
	retriesCounter         metric.Int64Counter
	deliveriesCounter      metric.Int64Counter
	subscriptionsDegraded  metric.Int64Counter
}

// NewEngineMetrics creates a new metrics collector
func NewEngineMetrics() (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error

	if m.passesCounter, err = meter.Int64Counter(
		"reorder_engine.passes",
		metric.WithDescription("Total number of evaluation passes"),
		metric.WithUnit("{pass}"),
	); err != nil {
		return nil, err
	}
	if m.passDurationHistogram, err = meter.Float64Histogram(
		"reorder_engine.pass.duration",
		metric.WithDescription("Duration of evaluation passes in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.productsEvaluated, err = meter.Int64Counter(
		"reorder_engine.products.evaluated",
		metric.WithDescription("Total number of product evaluations"),
		metric.WithUnit("{product}"),
	); err != nil {
		return nil, err
	}
	if m.decisionsCounter, err = meter.Int64Counter(
		"reorder_engine.decisions",
		metric.WithDescription("Decisions produced by the rule evaluator"),
		metric.WithUnit("{decision}"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesPendingGauge, err = meter.Int64UpDownCounter(
		"reorder_engine.deliveries.pending",
		metric.WithDescription("Deliveries queued, in flight or waiting for a retry"),
		metric.WithUnit("{delivery}"),
	); err != nil {
		return nil, err
	}
	if m.attemptsCounter, err = meter.Int64Counter(
		"reorder_engine.delivery.attempts",
		metric.WithDescription("Webhook delivery attempts by outcome"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if m.attemptDurationHist, err = meter.Float64Histogram(
		"reorder_engine.delivery.attempt.duration",
		metric.WithDescription("Duration of webhook delivery attempts in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.retriesCounter, err = meter.Int64Counter(
		"reorder_engine.delivery.retries",
		metric.WithDescription("Delivery retries scheduled"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, err
	}
	if m.deliveriesCounter, err = meter.Int64Counter(
		"reorder_engine.deliveries",
		metric.WithDescription("Finished deliveries by final status"),
		metric.WithUnit("{delivery}"),
	); err != nil {
		return nil, err
	}
	if m.subscriptionsDegraded, err = meter.Int64Counter(
		"reorder_engine.subscriptions.degraded",
		metric.WithDescription("Subscriptions deactivated after repeated delivery failures"),
		metric.WithUnit("{subscription}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPass records a finished evaluation pass
func (m *EngineMetrics) RecordPass(ctx context.Context, evaluated, requeued int, duration time.Duration) {
	if m == nil {
		return
	}
	m.passesCounter.Add(ctx, 1)
	m.passDurationHistogram.Record(ctx, duration.Seconds())
	m.productsEvaluated.Add(ctx, int64(evaluated), metric.WithAttributes(attribute.String("status", "evaluated")))
	m.productsEvaluated.Add(ctx, int64(requeued), metric.WithAttributes(attribute.String("status", "requeued")))
}

// RecordDecision records one rule decision
func (m *EngineMetrics) RecordDecision(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.decisionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("decision.kind", kind)))
}

// RecordDeliveryQueued records a delivery entering the dispatcher
func (m *EngineMetrics) RecordDeliveryQueued(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.deliveriesPendingGauge.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
}

// RecordAttempt records one delivery attempt
func (m *EngineMetrics) RecordAttempt(ctx context.Context, eventType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("outcome", outcome),
	)
	m.attemptsCounter.Add(ctx, 1, attrs)
	m.attemptDurationHist.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records a retry being scheduled
func (m *EngineMetrics) RecordRetry(ctx context.Context, eventType string, attempt int) {
	if m == nil {
		return
	}
	m.retriesCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.Int("attempt", attempt),
	))
}

// RecordDeliveryFinished records a delivery leaving the dispatcher with its final status
func (m *EngineMetrics) RecordDeliveryFinished(ctx context.Context, eventType, status string) {
	if m == nil {
		return
	}
	m.deliveriesCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("status", status),
	))
	m.deliveriesPendingGauge.Add(ctx, -1, metric.WithAttributes(attribute.String("event.type", eventType)))
}

// RecordSubscriptionDegraded records an automatic deactivation
func (m *EngineMetrics) RecordSubscriptionDegraded(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.subscriptionsDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
}
