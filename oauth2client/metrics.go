package oauth2client

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/AmmannChristian/go-oauth2handler/oauth2client"

const (
	MetricTokenRequests = "oauth2.token.requests"  // counter
	MetricTokenDuration = "oauth2.token.duration"  // histogram
	MetricTokenRefresh  = "oauth2.token.refreshes" // counter
)

// Outcome values recorded on the "outcome" attribute.
const (
	outcomeSuccess        = "success"
	outcomeAbsent         = "absent"
	outcomeProtocolError  = "protocol_error"
	outcomeTransportError = "transport_error"
	outcomeCanceled       = "canceled"
	outcomeError          = "error"
)

type metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	refresh  metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	m := &metrics{}
	var err error
	if m.requests, err = meter.Int64Counter(MetricTokenRequests,
		metric.WithDescription("Token endpoint requests by grant and outcome"),
	); err != nil {
		m.requests, _ = fallback.Int64Counter(MetricTokenRequests)
	}
	if m.duration, err = meter.Float64Histogram(MetricTokenDuration,
		metric.WithDescription("Token endpoint round trip duration"),
		metric.WithUnit("s"),
	); err != nil {
		m.duration, _ = fallback.Float64Histogram(MetricTokenDuration)
	}
	if m.refresh, err = meter.Int64Counter(MetricTokenRefresh,
		metric.WithDescription("Cache refreshes and whether they produced a token"),
	); err != nil {
		m.refresh, _ = fallback.Int64Counter(MetricTokenRefresh)
	}
	return m
}

func (m *metrics) recordRequest(ctx context.Context, grant, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("grant", grant),
		attribute.String("outcome", outcome),
	)
	// Record with a context that survives cancellation of the request.
	ctx = context.WithoutCancel(ctx)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *metrics) recordRefresh(ctx context.Context, outcome string) {
	m.refresh.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
