package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for the forecast service.
type Metrics struct {
	// Bundle resolution metrics.
	BundleResolutions     *prometheus.CounterVec   // labels: tier={remote,local}, outcome={hit,miss,error}
	BundleResolveDuration *prometheus.HistogramVec // labels: tier
	BundleCache           *prometheus.CounterVec   // labels: result={hit,miss}
	RemoteTierEnabled     prometheus.Gauge

	// Forecast metrics.
	Forecasts        *prometheus.CounterVec // labels: origin={model,synthetic}, outcome={success,error}
	ForecastDuration prometheus.Histogram

	// Risk metrics.
	RiskAssessments    *prometheus.CounterVec // labels: hazard, level
	AlertsPublished    prometheus.Counter
	AlertPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BundleResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_resolutions_total",
			Help:      "Bundle tier attempts by tier and outcome.",
		}, []string{"tier", "outcome"}),
		BundleResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_resolve_duration_seconds",
			Help:      "Time spent loading a bundle from a tier.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"tier"}),
		BundleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_cache_total",
			Help:      "Bundle cache lookups by result.",
		}, []string{"result"}),
		RemoteTierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_tier_enabled",
			Help:      "1 when the S3 bundle tier is configured, 0 otherwise.",
		}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecasts produced by origin and outcome.",
		}, []string{"origin", "outcome"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Duration of a resolve-then-forecast call.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RiskAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Hazard levels assigned by risk assessments.",
		}, []string{"hazard", "level"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Risk alerts written to Kafka.",
		}),
		AlertPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_publish_errors_total",
			Help:      "Risk alerts that could not be written to Kafka.",
		}),
	}

	prometheus.MustRegister(
		m.BundleResolutions,
		m.BundleResolveDuration,
		m.BundleCache,
		m.RemoteTierEnabled,
		m.Forecasts,
		m.ForecastDuration,
		m.RiskAssessments,
		m.AlertsPublished,
		m.AlertPublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BundleResolutions:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "bundle_resolutions_total"}, []string{"tier", "outcome"}),
		BundleResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "bundle_resolve_duration_seconds"}, []string{"tier"}),
		BundleCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "bundle_cache_total"}, []string{"result"}),
		RemoteTierEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "remote_tier_enabled"}),
		Forecasts:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "forecasts_total"}, []string{"origin", "outcome"}),
		ForecastDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "forecast_duration_seconds"}),
		RiskAssessments:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "risk_assessments_total"}, []string{"hazard", "level"}),
		AlertsPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "alerts_published_total"}),
		AlertPublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "alert_publish_errors_total"}),
	}
}
