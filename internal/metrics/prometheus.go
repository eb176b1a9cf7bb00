package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus реализует Metrics поверх client_golang.
type Prometheus struct {
	paymentWebhooksTotal    *prometheus.CounterVec
	paymentWebhookDuration  *prometheus.HistogramVec
	entitlementChangesTotal *prometheus.CounterVec
	ledgerFailuresTotal     prometheus.Counter
	deliveriesTotal         *prometheus.CounterVec
	remindersSentTotal      prometheus.Counter
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
}

// NewPrometheus регистрирует метрики в reg с префиксом namespace.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		paymentWebhooksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "webhooks_total",
			Help:      "Total number of payment provider webhooks by event and response status.",
		}, []string{"event", "status"}),

		paymentWebhookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "webhook_duration_seconds",
			Help:      "Duration of payment webhook processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),

		entitlementChangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "entitlement_changes_total",
			Help:      "Total number of account entitlement changes.",
		}, []string{"action", "tier"}),

		ledgerFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "ledger_failures_total",
			Help:      "Total number of sales ledger append failures.",
		}),

		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "deliveries_total",
			Help:      "Total number of webhook deliveries by event type and outcome.",
		}, []string{"event", "status"}),

		remindersSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "sent_total",
			Help:      "Total number of appointment reminders sent.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "code"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "code"}),
	}
}

func (m *Prometheus) RecordPaymentWebhook(event, status string) {
	m.paymentWebhooksTotal.WithLabelValues(event, status).Inc()
}

func (m *Prometheus) RecordPaymentWebhookDuration(event string, duration time.Duration) {
	m.paymentWebhookDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func (m *Prometheus) RecordEntitlementChange(action, tier string) {
	m.entitlementChangesTotal.WithLabelValues(action, tier).Inc()
}

func (m *Prometheus) RecordLedgerFailure() {
	m.ledgerFailuresTotal.Inc()
}

func (m *Prometheus) RecordDelivery(eventType, status string) {
	m.deliveriesTotal.WithLabelValues(eventType, status).Inc()
}

func (m *Prometheus) RecordRemindersSent(count int) {
	if count <= 0 {
		return
	}
	m.remindersSentTotal.Add(float64(count))
}

func (m *Prometheus) RecordHTTPRequest(method, route, code string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// StatusLabel переводит HTTP-код в значение метки.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
