package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReportsReceived counts monitor reports accepted by the controller
	ReportsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "floodctl",
			Name:      "reports_received_total",
			Help:      "Total number of monitor reports received",
		},
	)

	// DetectionDuration observes how long one detection pass takes
	DetectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "floodctl",
			Name:      "detection_duration_seconds",
			Help:      "Duration of one aggregate, detect and dispatch cycle",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	// Dispatches counts verdict announcements
	Dispatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "floodctl",
			Name:      "dispatches_total",
			Help:      "Total number of malicious-set announcements",
		},
	)

	// DispatchFailures counts monitors that were unbound or failed a push
	DispatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "floodctl",
			Name:      "dispatch_failures_total",
			Help:      "Total number of monitors that could not be notified",
		},
	)

	// MaliciousNames is the size of the current verdict
	MaliciousNames = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "floodctl",
			Name:      "malicious_names",
			Help:      "Number of names currently classified as under attack",
		},
	)

	// RegisteredMonitors is the size of the monitor registry
	RegisteredMonitors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "floodctl",
			Name:      "registered_monitors",
			Help:      "Number of monitors known to the controller",
		},
	)

	// StatsEmissions counts statistics emissions by outcome
	StatsEmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "floodctl",
			Name:      "stats_emissions_total",
			Help:      "Statistics emissions by result (written, skipped, dropped, failed)",
		},
		[]string{"result"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ReportsReceived)
		prometheus.DefaultRegisterer.Register(DetectionDuration)
		prometheus.DefaultRegisterer.Register(Dispatches)
		prometheus.DefaultRegisterer.Register(DispatchFailures)
		prometheus.DefaultRegisterer.Register(MaliciousNames)
		prometheus.DefaultRegisterer.Register(RegisteredMonitors)
		prometheus.DefaultRegisterer.Register(StatsEmissions)
	})
}
