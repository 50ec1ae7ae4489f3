package cluster

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentation wraps the optional OpenTelemetry Meter/Tracer installed
// via WithMeter/WithTracer. Every method is a safe no-op when the
// corresponding instrument was never created, so the ping and watch loops
// can call it unconditionally (grounded on the teacher SDK's WithTracer
// option, which is likewise optional and fanned out from a single functional
// option into per-call spans).
type instrumentation struct {
	tracer trace.Tracer

	pingCount      metric.Int64Counter
	pingErrors     metric.Int64Counter
	balanceCount   metric.Int64Counter
	balanceLatency metric.Float64Histogram
}

func newInstrumentation(meter metric.Meter, tracer trace.Tracer) *instrumentation {
	in := &instrumentation{tracer: tracer}
	if meter == nil {
		return in
	}
	// Errors from instrument creation are deliberately swallowed: a
	// misconfigured meter must never prevent a cluster from joining.
	in.pingCount, _ = meter.Int64Counter("cluster.ping.count",
		metric.WithDescription("Number of membership record refresh attempts."))
	in.pingErrors, _ = meter.Int64Counter("cluster.ping.errors",
		metric.WithDescription("Number of failed membership record refreshes."))
	in.balanceCount, _ = meter.Int64Counter("cluster.balance.count",
		metric.WithDescription("Number of completed balance passes."))
	in.balanceLatency, _ = meter.Float64Histogram("cluster.balance.duration_ms",
		metric.WithDescription("Wall-clock duration of a balance pass, in milliseconds."))
	return in
}

func (in *instrumentation) recordPing(ctx context.Context, err error) {
	if in.pingCount != nil {
		in.pingCount.Add(ctx, 1)
	}
	if err != nil && in.pingErrors != nil {
		in.pingErrors.Add(ctx, 1)
	}
}

func (in *instrumentation) recordBalance(ctx context.Context, start time.Time) {
	if in.balanceCount != nil {
		in.balanceCount.Add(ctx, 1)
	}
	if in.balanceLatency != nil {
		in.balanceLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	}
}

// startSpan is a no-op returning the input context and a no-op end func
// when no tracer was installed.
func (in *instrumentation) startSpan(ctx context.Context, name string) (context.Context, func()) {
	if in.tracer == nil {
		return ctx, func() {}
	}
	spanCtx, span := in.tracer.Start(ctx, name)
	return spanCtx, func() { span.End() }
}
