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
	// Forecast metrics
	ForecastRunsTotal       *prometheus.CounterVec
	ForecastRunDuration     prometheus.Histogram
	EntitiesForecasted      prometheus.Counter
	EntityFailures          prometheus.Counter
	ForecastPointsEmitted   prometheus.Counter
	CombinedPointsAssembled prometheus.Counter

	// Model metrics
	ModelPredictions *prometheus.CounterVec
	ModelCallLatency *prometheus.HistogramVec
	ModelCallErrors  *prometheus.CounterVec

	// Evaluation metrics
	EvaluationsTotal prometheus.Counter
	DecisionVerdicts *prometheus.CounterVec
	VerificationsRun *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Report metrics
	ReportsGenerated prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ev_forecast_lab"
	}

	return &Metrics{
		// Forecast metrics
		ForecastRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "runs_total",
			Help:      "Total number of forecast runs by status",
		}, []string{"status"}),
		ForecastRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "run_duration_seconds",
			Help:      "Forecast run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		EntitiesForecasted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "entities_forecasted_total",
			Help:      "Total number of entities forecasted successfully",
		}),
		EntityFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "entity_failures_total",
			Help:      "Total number of entities that failed within a run",
		}),
		ForecastPointsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "points_emitted_total",
			Help:      "Total number of forecast points emitted",
		}),
		CombinedPointsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "combined_points_assembled_total",
			Help:      "Total number of combined series rows assembled",
		}),

		// Model metrics
		ModelPredictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "predictions_total",
			Help:      "Total number of model predictions by model ID",
		}, []string{"model"}),
		ModelCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_latency_seconds",
			Help:      "Model prediction call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		ModelCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_errors_total",
			Help:      "Total number of failed model prediction calls",
		}, []string{"model"}),

		// Evaluation metrics
		EvaluationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "runs_total",
			Help:      "Total number of holdout evaluations performed",
		}),
		DecisionVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "decision_verdicts_total",
			Help:      "Total number of decision gate verdicts by outcome",
		}, []string{"verdict"}),
		VerificationsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "entities_total",
			Help:      "Total number of entity verifications by outcome",
		}, []string{"outcome"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Report metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of report artifact sets generated",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful forecast run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordForecastRun records one completed forecast run.
func RecordForecastRun(status string, durationSeconds float64, succeeded, failed, points int) {
	DefaultMetrics.ForecastRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ForecastRunDuration.Observe(durationSeconds)
	DefaultMetrics.EntitiesForecasted.Add(float64(succeeded))
	DefaultMetrics.EntityFailures.Add(float64(failed))
	DefaultMetrics.ForecastPointsEmitted.Add(float64(points))
}

// RecordModelCall records one model prediction call.
func RecordModelCall(modelID string, seconds float64, err error) {
	DefaultMetrics.ModelPredictions.WithLabelValues(modelID).Inc()
	DefaultMetrics.ModelCallLatency.WithLabelValues(modelID).Observe(seconds)
	if err != nil {
		DefaultMetrics.ModelCallErrors.WithLabelValues(modelID).Inc()
	}
}

// RecordDecision records an evaluation pass and its gate verdict.
func RecordDecision(verdict string) {
	DefaultMetrics.EvaluationsTotal.Inc()
	DefaultMetrics.DecisionVerdicts.WithLabelValues(verdict).Inc()
}

// RecordVerification records entity verification outcomes for a run.
func RecordVerification(matched, divergent int) {
	DefaultMetrics.VerificationsRun.WithLabelValues("match").Add(float64(matched))
	DefaultMetrics.VerificationsRun.WithLabelValues("divergent").Add(float64(divergent))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// MarkSuccessfulRun updates the last successful run timestamp.
func MarkSuccessfulRun(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulRun.Set(unixSeconds)
}
