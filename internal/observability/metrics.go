package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	GenerationCalls     *prometheus.CounterVec
	GenerationLatency   *prometheus.HistogramVec
	DuplicateRejections prometheus.Counter
	FallbacksUsed       *prometheus.CounterVec
	RateLimitRejections prometheus.Counter
	ArchiveFailures     prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of interview sessions held in the registry.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		GenerationCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Text generation calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		GenerationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Latency of a single text generation attempt in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}, []string{"kind"}),
		DuplicateRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_rejections_total",
			Help:      "Generated questions rejected as near-duplicates.",
		}),
		FallbacksUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_used_total",
			Help:      "Fallback questions or answers used, by kind and category.",
		}, []string{"kind", "category"}),
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Generation attempts refused by the local rate budget.",
		}),
		ArchiveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Terminal session summaries that failed to persist.",
		}),
	}
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) WSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationCalls.WithLabelValues(kind, outcome).Inc()
	m.GenerationLatency.WithLabelValues(kind).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) DuplicateRejected() {
	if m == nil {
		return
	}
	m.DuplicateRejections.Inc()
}

func (m *Metrics) FallbackUsed(kind, category string) {
	if m == nil {
		return
	}
	m.FallbacksUsed.WithLabelValues(kind, category).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejections.Inc()
}

func (m *Metrics) ArchiveFailed() {
	if m == nil {
		return
	}
	m.ArchiveFailures.Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
