package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcoach_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devcoach_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ModelInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcoach_model_invocations_total",
			Help: "Total number of chat model invocations.",
		},
		[]string{"model", "status"},
	)

	ModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devcoach_model_invocation_duration_seconds",
			Help:    "Chat model invocation duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcoach_tool_executions_total",
			Help: "Total number of tool executions.",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devcoach_tool_execution_duration_seconds",
			Help:    "Tool execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	DocumentChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devcoach_document_chunks",
			Help: "Number of document chunks in the vector store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ModelInvocations,
		ModelLatency,
		ToolExecutions,
		ToolDuration,
		DocumentChunks,
	)
}
