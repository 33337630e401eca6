package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds the domain-specific instruments exposed alongside the
// process/Go/build-info collectors New() already registers. Construct once
// per process and pass Collectors.Register as Options.Register.
type Collectors struct {
	RequestsTotal        *prometheus.CounterVec
	ErrorsTotal          *prometheus.CounterVec
	RateLimitRejections  *prometheus.CounterVec
	OutboxPublishesTotal *prometheus.CounterVec
	OutboxFailuresTotal  *prometheus.CounterVec
	DLQEntriesTotal      *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
	PaymentDuration *prometheus.HistogramVec

	OutboxPendingDepth prometheus.Gauge
}

// NewCollectors builds the domain metric instruments. namespace is the
// Prometheus metric name prefix (e.g. "payments").
func NewCollectors(namespace string) *Collectors {
	return &Collectors{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total RPCs served, by service, method and outcome.",
		}, []string{"service", "method", "code"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Non-OK RPCs, by error type, service and method.",
		}, []string{"type", "service", "method"}),

		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the sliding-window rate limiter.",
		}, []string{"method"}),

		OutboxPublishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publishes_total",
			Help:      "Outbox rows successfully published to the broker.",
		}, []string{"event_type"}),

		OutboxFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Outbox publish attempts that failed.",
		}, []string{"event_type"}),

		DLQEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dlq_entries_total",
			Help:      "Outbox rows routed to the dead-letter topic after exhausting retries.",
		}, []string{"event_type"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "RPC handling latency, by service and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),

		PaymentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_authorization_duration_seconds",
			Help:      "End-to-end latency of the authorization transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		OutboxPendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending_depth",
			Help:      "Rows in the outbox table not yet published.",
		}),
	}
}

// ObserveRPC and IncError implement grpcmw/metricsmw/promreporter.RPCMetrics.
// Collectors is wired into the unary interceptor chain through
// promreporter.Reporter, which splits the full gRPC method name into
// service/method before reporting.
func (c *Collectors) ObserveRPC(service, method, code string, secs float64) {
	c.RequestsTotal.WithLabelValues(service, method, code).Inc()
	c.RequestDuration.WithLabelValues(service, method).Observe(secs)
}

func (c *Collectors) IncError(typ, service, method string) {
	c.ErrorsTotal.WithLabelValues(typ, service, method).Inc()
}

// Inc implements internal/ratelimit.RejectionCounter, letting Collectors be
// wired directly into the rate-limit interceptor as its rejection sink.
func (c *Collectors) Inc(method string) {
	c.RateLimitRejections.WithLabelValues(method).Inc()
}

// The four methods below implement internal/outbox.Metrics, letting
// Collectors be wired directly into the outbox worker as its metrics sink.

func (c *Collectors) IncPublished(eventType string) {
	c.OutboxPublishesTotal.WithLabelValues(eventType).Inc()
}

func (c *Collectors) IncFailed(eventType string) {
	c.OutboxFailuresTotal.WithLabelValues(eventType).Inc()
}

func (c *Collectors) IncDeadLettered(eventType string) {
	c.DLQEntriesTotal.WithLabelValues(eventType).Inc()
}

func (c *Collectors) SetPendingDepth(n int64) {
	c.OutboxPendingDepth.Set(float64(n))
}

// Register implements the Options.Register signature in handler.go.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.RequestsTotal,
		c.ErrorsTotal,
		c.RateLimitRejections,
		c.OutboxPublishesTotal,
		c.OutboxFailuresTotal,
		c.DLQEntriesTotal,
		c.RequestDuration,
		c.PaymentDuration,
		c.OutboxPendingDepth,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
