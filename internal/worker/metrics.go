package worker

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDone     = "done"
	resultDeferred = "deferred"
	resultRetried  = "retried"
	resultDead     = "dead"
	resultLost     = "lost"
	resultError    = "error"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_search_queue_jobs_settled_total",
			Help: "Round jobs settled by the worker pool, by result.",
		},
		[]string{"result"},
	)

	queueJobs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "donor_search_queue_jobs",
			Help: "Round jobs by state (ready|in_flight|dead), sampled when the queue runs dry.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, queueJobs)
}
