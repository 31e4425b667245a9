package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "rectmon_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	pointsApplied  *prometheus.CounterVec
	historyLoads   *prometheus.CounterVec
	historyLatency *prometheus.HistogramVec
	worklogFetches *prometheus.CounterVec
	wsClients      prometheus.Gauge
)

// Init registers the service metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		pointsApplied = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "points_applied_total",
				Help: "Pushed telemetry points applied to a monitor group",
			},
			[]string{"group"},
		)
		historyLoads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_loads_total",
				Help: "Bulk history loads by group and result",
			},
			[]string{"group", "result"},
		)
		historyLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "history_load_latency_seconds",
				Help:    "Bulk history load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"group", "result"},
		)
		worklogFetches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "worklog_fetches_total",
				Help: "Work-log list fetches by result",
			},
			[]string{"result"},
		)
		wsClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "websocket_clients",
				Help: "Connected WebSocket clients",
			},
		)

		prometheus.MustRegister(
			pointsApplied,
			historyLoads,
			historyLatency,
			worklogFetches,
			wsClients,
		)
	})
}

// IncPointApplied counts one applied pushed point for a group.
func IncPointApplied(group string) {
	if pointsApplied != nil {
		pointsApplied.WithLabelValues(group).Inc()
	}
}

// ObserveHistoryLoad records one bulk load with its result and duration.
func ObserveHistoryLoad(group, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if historyLoads != nil {
		historyLoads.WithLabelValues(group, result).Inc()
	}
	if historyLatency != nil {
		historyLatency.WithLabelValues(group, result).Observe(duration.Seconds())
	}
}

// IncWorklogFetch counts one work-log fetch by result.
func IncWorklogFetch(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if worklogFetches != nil {
		worklogFetches.WithLabelValues(result).Inc()
	}
}

// SetWSClients sets the connected WebSocket client gauge.
func SetWSClients(n int) {
	if wsClients != nil {
		wsClients.Set(float64(n))
	}
}
