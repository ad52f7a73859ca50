// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Market metrics
	AssetsCreated   prometheus.Counter
	AssetsGraduated prometheus.Counter
	TradesTotal     *prometheus.CounterVec
	TradeErrors     *prometheus.CounterVec
	SecurityEvents  *prometheus.CounterVec

	// Volume metrics (wei, float approximation)
	VolumeWei      *prometheus.CounterVec
	FeesWei        *prometheus.CounterVec
	ActiveAssets   prometheus.Gauge
	PoolBalanceWei prometheus.Gauge

	// Latency metrics
	TradeDuration *prometheus.HistogramVec

	// Stream metrics
	StreamClients       prometheus.Gauge
	StreamEventsDropped prometheus.Counter
	StreamEventsSent    prometheus.Counter

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rabbit_launchpad"
	}

	return &Metrics{
		AssetsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "assets_created_total",
			Help:      "Total number of assets created",
		}),
		AssetsGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "assets_graduated_total",
			Help:      "Total number of assets graduated",
		}),
		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Total number of trades by side",
		}, []string{"side"}),
		TradeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trade_errors_total",
			Help:      "Total number of rejected trades by operation and reason",
		}, []string{"operation", "reason"}),
		SecurityEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "security_events_total",
			Help:      "Total number of security events by kind",
		}, []string{"kind"}),

		VolumeWei: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "volume_wei_total",
			Help:      "Total traded volume in wei by side (float approximation)",
		}, []string{"side"}),
		FeesWei: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fees_wei_total",
			Help:      "Total fees collected in wei by recipient (float approximation)",
		}, []string{"recipient"}),
		ActiveAssets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "active_assets",
			Help:      "Current number of non-graduated assets",
		}),
		PoolBalanceWei: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "pool_balance_wei",
			Help:      "Current curve pool balance in wei (float approximation)",
		}),

		TradeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trade_duration_seconds",
			Help:      "Trade execution latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Current number of connected websocket clients",
		}),
		StreamEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped due to slow clients",
		}),
		StreamEventsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_sent_total",
			Help:      "Total number of events sent to websocket clients",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),

		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Total number of storage errors by store and operation",
		}, []string{"store", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAssetCreated increments the assets created counter.
func RecordAssetCreated() {
	DefaultMetrics.AssetsCreated.Inc()
}

// RecordAssetGraduated increments the assets graduated counter.
func RecordAssetGraduated() {
	DefaultMetrics.AssetsGraduated.Inc()
}

// RecordTrade records a completed trade with its wei volume and latency.
func RecordTrade(side string, volumeWei float64, seconds float64) {
	DefaultMetrics.TradesTotal.WithLabelValues(side).Inc()
	DefaultMetrics.VolumeWei.WithLabelValues(side).Add(volumeWei)
	DefaultMetrics.TradeDuration.WithLabelValues(side).Observe(seconds)
}

// RecordTradeError records a rejected operation.
func RecordTradeError(operation, reason string) {
	DefaultMetrics.TradeErrors.WithLabelValues(operation, reason).Inc()
}

// RecordSecurityEvent records a security event.
func RecordSecurityEvent(kind string) {
	DefaultMetrics.SecurityEvents.WithLabelValues(kind).Inc()
}

// RecordFees records collected fees by recipient.
func RecordFees(recipient string, wei float64) {
	DefaultMetrics.FeesWei.WithLabelValues(recipient).Add(wei)
}

// UpdateActiveAssets updates the non-graduated asset gauge.
func UpdateActiveAssets(n int64) {
	DefaultMetrics.ActiveAssets.Set(float64(n))
}

// UpdatePoolBalance updates the curve pool balance gauge.
func UpdatePoolBalance(wei float64) {
	DefaultMetrics.PoolBalanceWei.Set(wei)
}

// RecordDBError records a storage error.
func RecordDBError(store, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(store, operation).Inc()
}
