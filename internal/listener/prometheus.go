package listener

import "github.com/devcoach-ai/devcoach/internal/metrics"

// MetricsListener feeds invocation counts and latencies into the
// Prometheus collectors.
type MetricsListener struct{}

func (MetricsListener) OnRequest(ctx RequestContext) {}

func (MetricsListener) OnResponse(ctx ResponseContext) {
	metrics.ModelInvocations.WithLabelValues(ctx.ModelName, "ok").Inc()
	metrics.ModelLatency.WithLabelValues(ctx.ModelName).Observe(ctx.Latency.Seconds())
}

func (MetricsListener) OnError(ctx ErrorContext) {
	metrics.ModelInvocations.WithLabelValues(ctx.ModelName, "error").Inc()
}
