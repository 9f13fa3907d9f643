package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the relay.
type Metrics struct {
	WebhookEvents   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	BrainLatency    prometheus.Histogram
	BrainErrors     *prometheus.CounterVec
	Replies         *prometheus.CounterVec
	QuotaRejections prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events by handling result.",
		}, []string{"result"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of user sessions held in memory.",
		}),
		BrainLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "brain_latency_seconds",
			Help:      "Latency of AI generate calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		BrainErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brain_errors_total",
			Help:      "AI service errors by provider and code.",
		}, []string{"provider", "code"}),
		Replies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Reply deliveries by status.",
		}, []string{"status"}),
		QuotaRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Events rejected because the daily quota was exhausted.",
		}),
	}
}

func (m *Metrics) ObserveBrainLatency(d time.Duration) {
	m.BrainLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
