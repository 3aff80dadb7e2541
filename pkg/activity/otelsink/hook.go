// Package otelsink records scope lifecycle events as OpenTelemetry metrics.
package otelsink

import (
	"context"
	"fmt"

	"github.com/goliatone/go-scoped/pkg/activity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName scopes the instruments created by New.
const MeterName = "github.com/goliatone/go-scoped"

const (
	EventsMetric = "scoped.lifecycle.events"
	OpenMetric   = "scoped.scopes.open"
)

// Hook counts lifecycle events per verb and kind, and tracks how many scopes
// are open per kind.
type Hook struct {
	events metric.Int64Counter
	open   metric.Int64UpDownCounter
}

// New registers the instruments on provider. A nil provider uses the global
// one.
func New(provider metric.MeterProvider) (*Hook, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(MeterName)

	events, err := meter.Int64Counter(
		EventsMetric,
		metric.WithDescription("Scope lifecycle events by verb and kind"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", EventsMetric, err)
	}

	open, err := meter.Int64UpDownCounter(
		OpenMetric,
		metric.WithDescription("Scopes currently open by kind"),
		metric.WithUnit("{scope}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", OpenMetric, err)
	}

	return &Hook{events: events, open: open}, nil
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(ctx context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	kind, _ := event.Metadata["kind"].(string)
	kindAttr := attribute.String("scope.kind", kind)

	h.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope.verb", event.Verb),
		kindAttr,
	))
	switch event.Verb {
	case activity.VerbScopeOpened:
		h.open.Add(ctx, 1, metric.WithAttributes(kindAttr))
	case activity.VerbScopeClosed:
		h.open.Add(ctx, -1, metric.WithAttributes(kindAttr))
	}
	return nil
}
