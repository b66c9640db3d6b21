package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unroutedTool labels dispatches for names no endpoint owns, keeping label
// values bounded by the catalog.
const unroutedTool = "unknown"

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	ConnectsTotal  *prometheus.CounterVec
	ToolCallsTotal *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
	ModelCalls     *prometheus.CounterVec
	ModelDuration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_chat",
				Subsystem: "registry",
				Name:      "connects_total",
				Help:      "Endpoint connection attempts",
			},
			[]string{"endpoint", "status"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_chat",
				Subsystem: "registry",
				Name:      "tool_calls_total",
				Help:      "Tool dispatches by outcome",
			},
			[]string{"tool_name", "endpoint", "status"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcp_chat",
				Subsystem: "registry",
				Name:      "tool_duration_seconds",
				Help:      "Tool dispatch latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_chat",
				Subsystem: "orchestrator",
				Name:      "model_calls_total",
				Help:      "Completion API calls by result",
			},
			[]string{"status"},
		),
		ModelDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mcp_chat",
				Subsystem: "orchestrator",
				Name:      "model_call_duration_seconds",
				Help:      "Completion API latency",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectsTotal, m.ToolCallsTotal, m.ToolDuration, m.ModelCalls, m.ModelDuration)
	}
	return m
}

func (m *Metrics) observeConnect(endpoint string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ConnectsTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) observeDispatch(tool, endpoint string, status OutcomeStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		tool = unroutedTool
	}
	m.ToolCallsTotal.WithLabelValues(tool, endpoint, string(status)).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) observeModelCall(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ModelCalls.WithLabelValues(status).Inc()
	m.ModelDuration.Observe(elapsed.Seconds())
}
