package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts payment webhook outcomes.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	replayed  prometheus.Counter
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received_total",
		Help: "Webhook notifications received by provider.",
	}, []string{"provider"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_processed_total",
		Help: "Webhook notifications fully processed by payment status.",
	}, []string{"provider", "status"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failed_total",
		Help: "Webhook notifications that ended in error.",
	}, []string{"provider"})
	replayed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_replayed_total",
		Help: "Webhook notifications skipped by the idempotency guard.",
	})
	reg.MustRegister(received, processed, failed, replayed)
	return &WebhookMetrics{
		received:  received,
		processed: processed,
		failed:    failed,
		replayed:  replayed,
	}
}

// IncReceived counts an incoming notification.
func (w *WebhookMetrics) IncReceived(provider string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncProcessed counts a fully handled notification.
func (w *WebhookMetrics) IncProcessed(provider, status string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(provider), normalizeLabel(status)).Inc()
}

// IncFailed counts a notification that errored.
func (w *WebhookMetrics) IncFailed(provider string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncReplayed counts a duplicate delivery short-circuited by idempotency.
func (w *WebhookMetrics) IncReplayed() {
	if w == nil || w.replayed == nil {
		return
	}
	w.replayed.Inc()
}
