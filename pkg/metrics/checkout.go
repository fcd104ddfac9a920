package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultCommitted = "committed"
	ResultFailed    = "failed"
)

// CheckoutMetrics records per-seller batch outcomes and checkout latency.
type CheckoutMetrics struct {
	batches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_seller_batches_total",
		Help: "Seller order batches committed or failed during checkout.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(batches, duration)
	return &CheckoutMetrics{
		batches:  batches,
		duration: duration,
	}
}

// IncBatch counts one seller batch with the given result.
func (c *CheckoutMetrics) IncBatch(result string) {
	if c == nil || c.batches == nil {
		return
	}
	c.batches.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveDuration records how long a checkout took.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
