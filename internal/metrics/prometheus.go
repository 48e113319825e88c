package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for Token Sentinel
type PrometheusMetrics struct {
	// Pipeline metrics
	BlocksProcessedTotal    *prometheus.CounterVec
	BlockProcessingDuration *prometheus.HistogramVec
	LatestProcessedBlock    *prometheus.GaugeVec

	// Discovery metrics
	DeploymentsDetectedTotal prometheus.Counter
	TokensClassifiedTotal    *prometheus.CounterVec
	TokensDiscoveredTotal    prometheus.Counter
	TokensScoredTotal        *prometheus.CounterVec

	// Wallet tracking metrics
	WalletIntentsTotal  *prometheus.CounterVec
	TradesRecordedTotal *prometheus.CounterVec

	// Chain client metrics
	RPCErrorsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		BlocksProcessedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_blocks_processed_total",
				Help: "Total number of blocks processed per pipeline",
			},
			[]string{"pipeline"},
		),

		BlockProcessingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentinel_block_processing_duration_seconds",
				Help:    "Time spent processing individual blocks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pipeline"},
		),

		LatestProcessedBlock: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentinel_latest_processed_block",
				Help: "Latest block number committed per pipeline",
			},
			[]string{"pipeline"},
		),

		DeploymentsDetectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_deployments_detected_total",
				Help: "Total number of contract deployments detected",
			},
		),

		TokensClassifiedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_tokens_classified_total",
				Help: "Classification outcomes for detected deployments",
			},
			[]string{"result"},
		),

		TokensDiscoveredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_tokens_discovered_total",
				Help: "Total number of token candidates discovered",
			},
		),

		TokensScoredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_tokens_scored_total",
				Help: "Total number of tokens scored, by risk tier",
			},
			[]string{"risk_tier"},
		),

		WalletIntentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_wallet_intents_total",
				Help: "Decoded watched-wallet intents, by kind",
			},
			[]string{"kind"},
		),

		TradesRecordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_trades_recorded_total",
				Help: "Ledger trades recorded, by kind",
			},
			[]string{"kind"},
		),

		RPCErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_rpc_errors_total",
				Help: "Chain RPC errors, by pipeline",
			},
			[]string{"pipeline"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_http_requests_total",
				Help: "Total HTTP requests by method, path, and status",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentinel_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentinel_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentinel_goroutines",
				Help: "Current number of goroutines",
			},
		),
	}
}

// RecordBlockProcessed updates the per-pipeline block metrics
func (pm *PrometheusMetrics) RecordBlockProcessed(pipeline string, duration time.Duration, number uint64) {
	pm.BlocksProcessedTotal.WithLabelValues(pipeline).Inc()
	pm.BlockProcessingDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	pm.LatestProcessedBlock.WithLabelValues(pipeline).Set(float64(number))
}

// RecordClassification increments the classification counter
func (pm *PrometheusMetrics) RecordClassification(isToken bool) {
	result := "rejected"
	if isToken {
		result = "token"
	}
	pm.TokensClassifiedTotal.WithLabelValues(result).Inc()
}

// RecordRPCError increments the RPC error counter for a pipeline
func (pm *PrometheusMetrics) RecordRPCError(pipeline string) {
	pm.RPCErrorsTotal.WithLabelValues(pipeline).Inc()
}

// RecordHTTPRequest records one served HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
