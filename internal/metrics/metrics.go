// Package metrics defines the Prometheus collectors of the relay and the
// helpers that record into them.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formrelay"

// Registry holds every collector of this package plus the Go and process
// collectors.
var Registry = prometheus.NewRegistry()

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions processed, by outcome (created, failed, rejected).",
		},
		[]string{"outcome"},
	)
	submissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time spent processing one submission end to end.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	submissionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_in_flight",
			Help:      "Submissions currently holding a processing slot.",
		},
	)
	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal pipeline failures, by stage.",
		},
		[]string{"stage"},
	)
	allocationSplitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_splits_total",
			Help:      "Demand entries spread over more than one timeslot, by channel.",
		},
		[]string{"channel"},
	)
	deficitUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_deficit_units_total",
			Help:      "Requested quantity that no slot could absorb, by channel.",
		},
		[]string{"channel"},
	)
	remoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls to the remote board API, by operation and result.",
		},
		[]string{"op", "result"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

var registerMetrics sync.Once

// Register adds all collectors to Registry. Safe to call more than once.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			submissionsTotal,
			submissionDuration,
			submissionsInFlight,
			warningsTotal,
			allocationSplitsTotal,
			deficitUnitsTotal,
			remoteCallsTotal,
			httpRequestDuration,
		)
	})
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordSubmission records the outcome and duration of one submission.
func RecordSubmission(outcome string, d time.Duration) {
	submissionsTotal.WithLabelValues(outcome).Inc()
	submissionDuration.Observe(d.Seconds())
}

// SetSubmissionsInFlight sets the in-flight gauge.
func SetSubmissionsInFlight(n int64) {
	submissionsInFlight.Set(float64(n))
}

// RecordWarning counts one non-fatal failure at a pipeline stage.
func RecordWarning(stage string) {
	warningsTotal.WithLabelValues(stage).Inc()
}

// RecordAllocation records the split and deficit of one planned entry.
func RecordAllocation(channel string, split bool, deficit int) {
	if split {
		allocationSplitsTotal.WithLabelValues(channel).Inc()
	}
	if deficit > 0 {
		deficitUnitsTotal.WithLabelValues(channel).Add(float64(deficit))
	}
}

// RecordRemoteCall counts one remote API call.
func RecordRemoteCall(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	remoteCallsTotal.WithLabelValues(op, result).Inc()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
