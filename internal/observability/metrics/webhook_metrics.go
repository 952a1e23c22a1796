package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WebhookMetrics counts webhook ingestion outcomes per provider and event
// type, so stale-event absorption stays visible without log scraping.
type WebhookMetrics struct {
	received metric.Int64Counter
	applied  metric.Int64Counter
	stale    metric.Int64Counter
	rejected metric.Int64Counter
}

// NewWebhookMetrics creates webhook instruments on the global provider.
func NewWebhookMetrics() (*WebhookMetrics, error) {
	meter := otel.GetMeterProvider().Meter("traincore/webhook")

	received, err := meter.Int64Counter("webhook.events.received")
	if err != nil {
		return nil, err
	}
	applied, err := meter.Int64Counter("webhook.events.applied")
	if err != nil {
		return nil, err
	}
	stale, err := meter.Int64Counter("webhook.events.stale")
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("webhook.events.rejected")
	if err != nil {
		return nil, err
	}

	return &WebhookMetrics{
		received: received,
		applied:  applied,
		stale:    stale,
		rejected: rejected,
	}, nil
}

func (m *WebhookMetrics) RecordReceived(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	m.received.Add(ctx, 1, eventAttributes(provider, eventType))
}

func (m *WebhookMetrics) RecordApplied(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	m.applied.Add(ctx, 1, eventAttributes(provider, eventType))
}

// RecordStale counts an event whose status proposal was absorbed as a
// no-op or fields-only write.
func (m *WebhookMetrics) RecordStale(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	m.stale.Add(ctx, 1, eventAttributes(provider, eventType))
}

func (m *WebhookMetrics) RecordRejected(ctx context.Context, provider, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("reason", reason),
	))
}

func eventAttributes(provider, eventType string) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("event_type", eventType),
	)
}
