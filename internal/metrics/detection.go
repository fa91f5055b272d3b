package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detection Prometheus metrics.
var (
	ScanRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "scan_requests_total",
			Help:      "Total number of scan evaluations by outcome",
		},
		[]string{"outcome"},
	)

	DetectorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "detector_requests_total",
			Help:      "Total number of upstream detector calls",
		},
		[]string{"status"},
	)

	DetectorRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shelfscan",
			Name:      "detector_request_duration_seconds",
			Help:      "Upstream detector call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	DetectorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "detector_errors_total",
			Help:      "Total upstream detector failures",
		},
		[]string{"kind"},
	)

	DecisionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "decision_cache_total",
			Help:      "Decision cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	UnknownClassTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "unknown_class_total",
			Help:      "Detections dropped because the class has no catalog entry",
		},
	)
)

var detMetricsRegistered bool

// RegisterDetectionMetrics registers detection metrics. Must be called once from main.
func RegisterDetectionMetrics() {
	if detMetricsRegistered {
		return
	}
	prometheus.MustRegister(ScanRequestsTotal)
	prometheus.MustRegister(DetectorRequestsTotal)
	prometheus.MustRegister(DetectorRequestDuration)
	prometheus.MustRegister(DetectorErrorsTotal)
	prometheus.MustRegister(DecisionCacheTotal)
	prometheus.MustRegister(UnknownClassTotal)
	detMetricsRegistered = true
}
