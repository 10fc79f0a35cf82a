package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Sui RPC Metrics
	suiRPCCallsTotal    *prometheus.CounterVec
	suiRPCCallDuration  *prometheus.HistogramVec
	suiRPCRateLimitWait *prometheus.CounterVec
	suiCoinsPerListing  *prometheus.HistogramVec

	// Tip Jar Metrics
	statsReadsTotal   *prometheus.CounterVec
	tipAttemptsTotal  *prometheus.CounterVec
	tipAmountMist     *prometheus.CounterVec
	sponsorCallsTotal *prometheus.CounterVec
	sponsorDuration   *prometheus.HistogramVec
	sendsInFlight     prometheus.Gauge

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections prometheus.Gauge
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		suiRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_calls_total",
				Help: "Total number of Sui RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		suiRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sui_rpc_call_duration_seconds",
				Help:    "Duration of Sui RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		suiRPCRateLimitWait: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_rate_limit_waits_total",
				Help: "Total number of Sui RPC calls delayed by the local rate limiter",
			},
			[]string{"endpoint"},
		),
		suiCoinsPerListing: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sui_coins_per_listing",
				Help:    "Number of coin objects returned per suix_getCoins call",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
			[]string{"endpoint"},
		),

		statsReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipjar_stats_reads_total",
				Help: "Total number of tip jar stats reads by status",
			},
			[]string{"status"},
		),
		tipAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipjar_tip_attempts_total",
				Help: "Total number of tip send attempts by outcome",
			},
			[]string{"outcome"},
		),
		tipAmountMist: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipjar_tip_amount_mist_total",
				Help: "Total MIST sent through successful tips",
			},
			[]string{"jar"},
		),
		sponsorCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sponsor_calls_total",
				Help: "Total number of sponsor relay calls by step and status",
			},
			[]string{"step", "status"},
		),
		sponsorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sponsor_call_duration_seconds",
				Help:    "Duration of sponsor relay calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"step"},
		),
		sendsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tipjar_sends_in_flight",
				Help: "Number of tip sends currently outstanding",
			},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"event_type"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Sui RPC metric helpers

// RecordRPCCall records a Sui RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.suiRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.suiRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitWait records a call that had to wait for a limiter token.
func (m *Metrics) RecordRateLimitWait(endpoint string) {
	m.suiRPCRateLimitWait.WithLabelValues(endpoint).Inc()
}

// RecordCoinsListed records the size of a coin listing.
func (m *Metrics) RecordCoinsListed(endpoint string, count int) {
	m.suiCoinsPerListing.WithLabelValues(endpoint).Observe(float64(count))
}

// Tip jar metric helpers

// RecordStatsRead records a stats read with status "success", "error" or "idle".
func (m *Metrics) RecordStatsRead(status string) {
	m.statsReadsTotal.WithLabelValues(status).Inc()
}

// RecordTipAttempt records the outcome of a send attempt, e.g. "success" or the error kind.
func (m *Metrics) RecordTipAttempt(outcome string) {
	m.tipAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordTipAmount adds a successful tip amount for a jar.
func (m *Metrics) RecordTipAmount(jar string, mist uint64) {
	m.tipAmountMist.WithLabelValues(jar).Add(float64(mist))
}

// RecordSponsorCall records a sponsor relay call ("sponsor" or "execute").
func (m *Metrics) RecordSponsorCall(step string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sponsorCallsTotal.WithLabelValues(step, status).Inc()
	m.sponsorDuration.WithLabelValues(step).Observe(duration)
}

// RecordSendInFlight moves the in-flight gauge by delta.
func (m *Metrics) RecordSendInFlight(delta float64) {
	m.sendsInFlight.Add(delta)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(delta float64) {
	m.sseActiveConnections.Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(eventType string) {
	m.sseEventsSent.WithLabelValues(eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
