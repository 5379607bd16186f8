package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, jobDurationSeconds) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job runs, labeled by job name and outcome.",
		},
		[]string{"job", "status"}, // 'completed', 'failed', 'skipped'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduled_job_duration_seconds",
			Help:    "Scheduled job run duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
		[]string{"job"},
	)
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func ObserveJobDuration(job string, seconds float64) {
	jobDurationSeconds.WithLabelValues(norm(job)).Observe(seconds)
}
