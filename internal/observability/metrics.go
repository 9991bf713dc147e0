package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the webhook, dispatch, and
// batch-engine flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	eventsDispatchedTotal  *prometheus.CounterVec
	batchOperationsTotal   *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	liveSessions           prometheus.Gauge
	webhookRejectionsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "settlement_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "settlement_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		eventsDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "settlement_engine",
				Name:      "events_dispatched_total",
				Help:      "Total number of dispatched events by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		batchOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "settlement_engine",
				Name:      "batch_operations_total",
				Help:      "Total number of batch-engine operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "settlement_engine",
				Name:      "notifications_total",
				Help:      "Total number of fanned-out notifications by type.",
			},
			[]string{"type"},
		),
		liveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "settlement_engine",
				Name:      "live_sessions",
				Help:      "Current number of open live-update streams.",
			},
		),
		webhookRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "settlement_engine",
				Name:      "webhook_rejections_total",
				Help:      "Total number of webhook requests rejected before processing.",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.eventsDispatchedTotal,
		m.batchOperationsTotal,
		m.notificationsTotal,
		m.liveSessions,
		m.webhookRejectionsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncEventDispatched(kind string, outcome string) {
	if m == nil {
		return
	}
	m.eventsDispatchedTotal.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncBatchOperation(operation string, outcome string) {
	if m == nil {
		return
	}
	m.batchOperationsTotal.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncNotification(typ string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(normalizeLabel(typ)).Inc()
}

func (m *Metrics) IncLiveSessions() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

func (m *Metrics) DecLiveSessions() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}

func (m *Metrics) IncWebhookRejection(reason string) {
	if m == nil {
		return
	}
	m.webhookRejectionsTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
