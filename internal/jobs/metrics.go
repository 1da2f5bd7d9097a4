package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobq_jobs_added_total",
		Help: "Total number of jobs added to the queue",
	})
	JobsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobq_jobs_started_total",
		Help: "Total number of jobs claimed and started by the worker",
	})
	JobsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobq_jobs_completed_total",
		Help: "Total number of jobs that exited with code 0",
	})
	JobsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobq_jobs_failed_total",
		Help: "Total number of jobs that exited nonzero or failed to spawn",
	})
	JobsStoppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobq_jobs_stopped_total",
		Help: "Total number of jobs terminated via stop",
	})
	JobRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobq_job_running",
		Help: "1 while the worker has a job running, 0 otherwise",
	})
)

func init() {
	prometheus.MustRegister(
		JobsAddedTotal,
		JobsStartedTotal,
		JobsCompletedTotal,
		JobsFailedTotal,
		JobsStoppedTotal,
		JobRunning,
	)
}
