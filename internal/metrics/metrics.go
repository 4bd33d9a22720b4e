package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_bills_generated_total",
			Help: "Total number of bills generated per utility type",
		},
		[]string{"type"},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_renders_total",
			Help: "Total number of PDF documents rendered per utility type",
		},
		[]string{"type"},
	)

	RenderDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ubill_render_duration_seconds",
			Help:    "PDF render duration in seconds per utility type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_request_errors_total",
			Help: "Total number of error responses per path and status code",
		},
		[]string{"path", "code"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_payments_total",
			Help: "Total number of simulated payment initiations by outcome",
		},
		[]string{"status"},
	)

	CodeValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_code_validations_total",
			Help: "Total number of access-code validations by result",
		},
		[]string{"result"},
	)
)

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ubill_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ubill_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ubill_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
