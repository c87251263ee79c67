// Package metrics exposes Prometheus metrics of analysis runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Registry holds all metrics of the service
type Registry struct {
	registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	StageDuration  *prometheus.HistogramVec
	ReasonsTotal   *prometheus.CounterVec
	RecordsWritten *prometheus.CounterVec
	WriteRetries   *prometheus.CounterVec
	AlarmsDropped  *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	factory := promauto.With(r.registry)

	r.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_reasons_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"use_case", "outcome"},
	)

	r.RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alarm_reasons_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"use_case"},
	)

	r.StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alarm_reasons_stage_duration_seconds",
			Help:    "Duration of the load, analyze and write stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"use_case", "stage"},
	)

	r.ReasonsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_reasons_reasons_total",
			Help: "Reasons emitted by base and code",
		},
		[]string{"use_case", "base", "code"},
	)

	r.RecordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_reasons_records_written_total",
			Help: "Records upserted into result tables",
		},
		[]string{"use_case"},
	)

	r.WriteRetries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_reasons_write_retries_total",
			Help: "Row writes repeated after a rejected upsert",
		},
		[]string{"use_case"},
	)

	r.AlarmsDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_reasons_alarms_dropped_total",
			Help: "Alarms dropped because their gate has no analyzable delegate",
		},
		[]string{"use_case"},
	)

	return r
}

// Registerer returns the underlying registerer for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRun records the outcome and duration of a run
func (r *Registry) RecordRun(useCase string, err error, duration time.Duration) {
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
	}
	r.RunsTotal.WithLabelValues(useCase, outcome).Inc()
	r.RunDuration.WithLabelValues(useCase).Observe(duration.Seconds())
}

// RecordStage records how long one stage of a run took
func (r *Registry) RecordStage(useCase, stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(useCase, stage).Observe(duration.Seconds())
}

// RecordReason counts one emitted reason
func (r *Registry) RecordReason(useCase, base string, code int) {
	r.ReasonsTotal.WithLabelValues(useCase, base, codeLabel(code)).Inc()
}

// RecordWrite records the outcome of a result write
func (r *Registry) RecordWrite(useCase string, written, retried int) {
	r.RecordsWritten.WithLabelValues(useCase).Add(float64(written))
	r.WriteRetries.WithLabelValues(useCase).Add(float64(retried))
}

func (r *Registry) RecordDroppedAlarms(useCase string, n int) {
	r.AlarmsDropped.WithLabelValues(useCase).Add(float64(n))
}

func codeLabel(code int) string {
	switch code {
	case 0:
		return "correlated"
	case 1:
		return "causal"
	case 2:
		return "indeterminate"
	}
	return "unset"
}
