package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Checkouts     *prometheus.CounterVec
	WebhookEvents *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
}

func NewCheckoutMetrics(service string) *CheckoutMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by payment method and outcome.",
	}, []string{"method", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "webhook_events_total",
		Help:      "Gateway webhook deliveries by event type and result.",
	}, []string{"type", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(checkouts, webhooks, latency)
	return &CheckoutMetrics{Checkouts: checkouts, WebhookEvents: webhooks, LatencyMS: latency}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
