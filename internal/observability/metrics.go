package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert aggregation service.
type Metrics struct {
	RunsTotal    prometheus.Counter
	RunsSkipped  prometheus.Counter // overlapping triggers dropped by the single-flight guard
	RunsFailed   prometheus.Counter
	RunDuration  prometheus.Histogram
	RunInFlight  prometheus.Gauge
	ActiveAlerts prometheus.Gauge

	// Per-source feed metrics.
	FetchErrors   *prometheus.CounterVec   // labels: source
	FetchDuration *prometheus.HistogramVec // labels: source
	CooldownSkips *prometheus.CounterVec   // labels: source
	EventsSeen    *prometheus.CounterVec   // labels: source
	AlertsScored  *prometheus.CounterVec   // labels: source, level

	NotificationsSent       prometheus.Counter
	NotificationsSuppressed prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunsSkipped,
		m.RunsFailed,
		m.RunDuration,
		m.RunInFlight,
		m.ActiveAlerts,
		m.FetchErrors,
		m.FetchDuration,
		m.CooldownSkips,
		m.EventsSeen,
		m.AlertsScored,
		m.NotificationsSent,
		m.NotificationsSuppressed,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "runs_total",
			Help:      "Total aggregation runs started.",
		}),
		RunsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "runs_skipped_total",
			Help:      "Scheduler triggers skipped because a run was already in flight.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "runs_failed_total",
			Help:      "Runs that aborted before persisting state.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_alerts",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete aggregation run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		RunInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_alerts",
			Name:      "run_in_flight",
			Help:      "1 while an aggregation run is executing.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_alerts",
			Name:      "active_alerts",
			Help:      "Size of the merged active alert set after the last run.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "fetch_errors_total",
			Help:      "Feed fetches that failed with a transport or HTTP error.",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazard_alerts",
			Name:      "fetch_duration_seconds",
			Help:      "Feed HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		CooldownSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "cooldown_skips_total",
			Help:      "Fetches skipped because the source was in a failure cooldown.",
		}, []string{"source"}),
		EventsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "events_seen_total",
			Help:      "New raw events recorded in the seen-id set, by source.",
		}, []string{"source"}),
		AlertsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "alerts_scored_total",
			Help:      "Alerts produced by relevance scoring, by source and level.",
		}, []string{"source", "level"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "notifications_sent_total",
			Help:      "Notifications dispatched to the sink.",
		}),
		NotificationsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_alerts",
			Name:      "notifications_suppressed_total",
			Help:      "Notifications suppressed because the key was already notified.",
		}),
	}
}
