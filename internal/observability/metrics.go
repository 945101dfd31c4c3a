package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"producechain/internal/core"
)

// PrometheusRecorder counts service operations by outcome and observes their latency.
type PrometheusRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the operation collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "producechain",
			Name:      "operation_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "producechain",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		return r, nil
	}
	for _, c := range []prometheus.Collector{r.total, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements core.MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := string(core.AuditStatusError)
	if success {
		status = string(core.AuditStatusSuccess)
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
